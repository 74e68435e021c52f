package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/grpcserver"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/media"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/transport"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			newLogger,
			db.NewGormClient,
			fx.Annotate(media.NewImages, fx.As(new(service.ImageStore))),
			service.NewGeneral,
			service.NewRecipes,
			service.NewCatalog,
			transport.NewHTTPServer,
		),
		grpcserver.Module,
		fx.WithLogger(func(l *zap.SugaredLogger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Desugar()}
		}),
		fx.Invoke(func(*transport.HTTPServer) {}),
	).Run()
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
