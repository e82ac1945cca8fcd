//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/conf"
	"github.com/yamenmod9/gym-management-system/internal/data"
	"github.com/yamenmod9/gym-management-system/internal/server"
	"github.com/yamenmod9/gym-management-system/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}
