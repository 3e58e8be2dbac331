package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	// Sink is a file path, stdout when empty.
	Sink    string `yaml:"sink" envconfig:"LOG_SINK"`
	Console bool   `yaml:"console" envconfig:"LOG_CONSOLE"`
}

func NewLogger(cfg Log, name string) *zap.Logger {
	return newLogger(cfg, name, zapcore.Lock(os.Stdout))
}

// newLogger writes to out and, when cfg.Sink opens, to the sink file as well.
// A sink that fails to open is reported through the logger itself.
func newLogger(cfg Log, name string, out zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if cfg.Console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	ws := out
	var sinkErr error
	if cfg.Sink != "" {
		f, err := os.OpenFile(cfg.Sink, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			sinkErr = err
		} else {
			ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(f))
		}
	}

	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(cfg.LogLevel))
	log := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Named(name)
	if sinkErr != nil {
		log.Warn("log sink unavailable, writing to stdout only",
			zap.String("sink", cfg.Sink), zap.Error(sinkErr))
	}
	return log
}
