package conf

import (
	"fmt"
	"time"
)

type Bootstrap struct {
	Server *Server `yaml:"server" json:"server"`
	Data   *Data   `yaml:"data" json:"data"`
	Gym    *Gym    `yaml:"gym" json:"gym"`
	Log    *Log    `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver          string `yaml:"driver" json:"driver"`
		Source          string `yaml:"source" json:"source"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
		DialTimeout  string `yaml:"dial_timeout" json:"dial_timeout"`
		PoolSize     int32  `yaml:"pool_size" json:"pool_size"`
		MinIdleConns int32  `yaml:"min_idle_conns" json:"min_idle_conns"`
	} `yaml:"redis" json:"redis"`
}

// Gym 门禁/订阅相关配置
type Gym struct {
	// TokenSecret 门禁令牌签名密钥 (HS256)
	TokenSecret string `yaml:"token_secret" json:"token_secret"`
	// TokenIssuer 门禁令牌签发方标识
	TokenIssuer string `yaml:"token_issuer" json:"token_issuer"`
	// TokenTTL 门禁令牌默认有效期, 如 "5m"
	TokenTTL string `yaml:"token_ttl" json:"token_ttl"`
	// SweepSpec 过期清扫 cron 表达式 (秒级, 留空用默认)
	SweepSpec string `yaml:"sweep_spec" json:"sweep_spec"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// TokenTTLOrDefault 解析令牌有效期, 解析失败返回 fallback
func (g *Gym) TokenTTLOrDefault(fallback time.Duration) time.Duration {
	if g == nil || g.TokenTTL == "" {
		return fallback
	}
	d, err := time.ParseDuration(g.TokenTTL)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Gym == nil {
		return fmt.Errorf("gym configuration is required")
	}
	if b.Gym.TokenSecret == "" {
		return fmt.Errorf("gym.token_secret is required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}
