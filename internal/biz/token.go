package biz

import (
	"errors"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/conf"
	"github.com/yamenmod9/gym-management-system/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims 门禁令牌载荷
// 令牌离线可验签: 闸机侧只需要密钥, 不需要访问数据库
type AccessTokenClaims struct {
	CustomerID     uint64 `json:"customer_id"`
	SubscriptionID uint64 `json:"subscription_id,omitempty"`
	Purpose        string `json:"purpose"`
	jwt.RegisteredClaims
}

// AccessTokenIssuer 门禁令牌签发/验签 (HS256)
type AccessTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAccessTokenIssuer 创建门禁令牌签发器
func NewAccessTokenIssuer(c *conf.Bootstrap) *AccessTokenIssuer {
	secret := ""
	issuer := "gym-service"
	ttl := constants.DefaultTokenTTL
	if c != nil && c.Gym != nil {
		secret = c.Gym.TokenSecret
		if c.Gym.TokenIssuer != "" {
			issuer = c.Gym.TokenIssuer
		}
		ttl = c.Gym.TokenTTLOrDefault(constants.DefaultTokenTTL)
	}
	if secret == "" {
		panic("gym.token_secret is required")
	}
	return &AccessTokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// DefaultTTL 配置的默认有效期
func (i *AccessTokenIssuer) DefaultTTL() time.Duration {
	return i.ttl
}

// Issue 签发限时门禁令牌
func (i *AccessTokenIssuer) Issue(customerID, subscriptionID uint64, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > constants.MaxTokenTTL {
		ttl = i.ttl
	}
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		Purpose:        constants.TokenPurposeGateAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify 验签并解析门禁令牌
// expired=true 表示签名有效但已过期 (拒绝原因码要区分 EXPIRED_TOKEN 和 INVALID_CREDENTIAL)
func (i *AccessTokenIssuer) Verify(tokenString string) (claims *AccessTokenClaims, expired bool, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, true, err
		}
		return nil, false, err
	}
	c, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, false, jwt.ErrTokenInvalidClaims
	}
	// 校验用途标识, 拒绝把登录态等其他 JWT 当门禁令牌用
	if c.Purpose != constants.TokenPurposeGateAccess {
		return nil, false, jwt.ErrTokenInvalidClaims
	}
	return c, false, nil
}
