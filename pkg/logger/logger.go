package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// Init inicializa el logger global. Los cores extra (p. ej. el envío de errores
// a la suscripción de logs) se añaden en tee al core principal.
func Init(level string, extra ...zapcore.Core) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"            // Logs estructurados en JSON
	cfg.EncoderConfig.TimeKey = "ts" // timestamp
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	var opts []zap.Option
	if len(extra) > 0 {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(append([]zapcore.Core{core}, extra...)...)
		}))
	}

	built, err := cfg.Build(opts...)
	if err != nil {
		return err
	}
	log = built
	return nil
}

// Logger retorna el logger estructurado. Antes de Init devuelve un Nop.
func Logger() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
