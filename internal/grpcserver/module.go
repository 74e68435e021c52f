package grpcserver

import (
	"go.uber.org/fx"
)

var (
	Module = fx.Options(
		fx.Provide(NewHealthServer),
		fx.Invoke(Register),
	)
)
