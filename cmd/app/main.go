package main

import (
	"go.uber.org/fx"

	"capture-relay/internal/config"
	"capture-relay/internal/geoip"
	"capture-relay/internal/httpserver"
	"capture-relay/internal/logging"
	"capture-relay/internal/storage"
	"capture-relay/internal/telegram"
)

func main() {
	fx.New(options()).Run()
}

func options() fx.Option {
	return fx.Options(
		fx.WithLogger(logging.FxLogger),
		fx.Provide(
			config.Load,
			logging.New,
			geoip.New,
			storage.NewRedisClient,
			storage.New,
			telegram.NewSender,
			httpserver.NewCaptureHandler,
			httpserver.NewRouter,
			httpserver.NewServer,
		),
		fx.Invoke(
			httpserver.RegisterRoutes,
			httpserver.Start,
		),
	)
}
