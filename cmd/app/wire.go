//go:build wireinject
// +build wireinject

package main

import (
	"keybroker/config"
	"keybroker/internal/command"
	"keybroker/internal/cron"
	"keybroker/internal/database"
	"keybroker/internal/handler"
	"keybroker/internal/middleware"
	"keybroker/internal/router"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init application.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			telemetry.ProviderSet,
			command.ProviderSet,
		),
	)
}
