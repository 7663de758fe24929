package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the root logger is built, matching the teacher's
// logging.level / logging.format config keys.
type Config struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// New builds the process-wide root logger. Every component receives a
// derived logr.Logger through RunContext rather than reaching for a
// package-level singleton (spec.md §9).
func New(cfg Config) (logr.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return logr.Logger{}, err
		}
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	encoderCfg = zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	zl := zap.New(core, zap.AddCaller())
	return zapr.NewLogger(zl), nil
}

// ToKV flattens Fields into a logr-compatible key/value slice.
func (f Fields) ToKV() []any {
	kv := make([]any, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}
