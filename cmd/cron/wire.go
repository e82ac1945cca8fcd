//go:build wireinject
// +build wireinject

package main

import (
	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/conf"
	"github.com/yamenmod9/gym-management-system/internal/data"

	"github.com/google/wire"
)

// wireApp 初始化应用
func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		newLogger,

		// Data 层
		data.ProviderSet,

		// Biz 层
		biz.ProviderSet,

		// App 结构
		wire.Struct(new(CronApp), "*"),
	))
}
