package server

import (
	"encoding/json"
	stdhttp "net/http"
	"strconv"

	"github.com/gaoyong06/go-pkg/health"
	"github.com/gaoyong06/go-pkg/middleware/i18n"

	"github.com/yamenmod9/gym-management-system/internal/conf"
	"github.com/yamenmod9/gym-management-system/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, sub *service.SubscriptionService, entry *service.EntryService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			// 添加 i18n 中间件
			i18n.Middleware(),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerSubscriptionRoutes(srv, sub)
	registerEntryRoutes(srv, entry)

	// 注册健康检查端点
	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, health.NewResponse("gym-service"))
	})

	return srv
}

// pathID 解析路径参数中的数字ID
func pathID(ctx http.Context, name string) (uint64, error) {
	raw := ctx.Vars().Get(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, kerrors.BadRequest("INVALID_ARGUMENT", "invalid "+name)
	}
	return id, nil
}

func queryInt(ctx http.Context, name string, fallback int) int {
	raw := ctx.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func registerSubscriptionRoutes(srv *http.Server, svc *service.SubscriptionService) {
	r := srv.Route("/v1")

	r.POST("/subscriptions", func(ctx http.Context) error {
		var req service.CreateSubscriptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateSubscription(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/subscriptions/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		reply, err := svc.GetSubscription(ctx, id)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/subscriptions/{id}/renew", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.RenewSubscriptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := svc.RenewSubscription(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/subscriptions/{id}/freeze", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.FreezeSubscriptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := svc.FreezeSubscription(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/subscriptions/{id}/unfreeze", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.UnfreezeSubscriptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := svc.UnfreezeSubscription(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/subscriptions/{id}/stop", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.StopSubscriptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := svc.StopSubscription(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/subscriptions/{id}/credit", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.CreditEntitlementRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := svc.CreditEntitlement(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/subscriptions/{id}/freezes", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		reply, err := svc.ListFreezeHistory(ctx, id)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/services", func(ctx http.Context) error {
		reply, err := svc.ListServices(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 手动触发过期清扫, 常规路径是 cron 定时任务
	r.POST("/subscriptions/sweep", func(ctx http.Context) error {
		reply, err := svc.SweepExpired(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func registerEntryRoutes(srv *http.Server, svc *service.EntryService) {
	r := srv.Route("/v1")

	r.POST("/entry/validate", func(ctx http.Context) error {
		var req service.ValidateEntryRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.ValidateEntry(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/entry/tokens", func(ctx http.Context) error {
		var req service.IssueTokenRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.IssueToken(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/customers/{id}/entries", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		page := queryInt(ctx, "page", 1)
		pageSize := queryInt(ctx, "page_size", 0)
		reply, err := svc.ListEntryHistory(ctx, id, page, pageSize)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 闸机硬件直连的资格校验, 不扣减权益
	r.POST("/biometric/validate", func(ctx http.Context) error {
		var req service.ValidateBiometricRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.ValidateBiometric(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/customers/{id}/biometrics", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		reply, err := svc.ListBiometricReferences(ctx, id)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	if code >= 140000 && code < 150000 {
		return stdhttp.StatusBadRequest
	}
	return stdhttp.StatusInternalServerError
}
