package observability

import (
	"github.com/zeltonlabs/zelton/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	dev := zap.NewDevelopmentConfig()
	dev.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return dev.Build()
}

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
)
