package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns sugared logger tagged with given service name.
// Log level can be changed with LOG_LEVEL env variable (debug, info, warn, error).
// Returned logger is never nil: unknown level falls back to info and is
// reported as error next to a working logger.
func New(service string) (*zap.SugaredLogger, error) {
	var levelErr error

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			level.SetLevel(zapcore.InfoLevel)
			levelErr = fmt.Errorf("invalid LOG_LEVEL %q: %w", lvl, err)
		}
	}

	config := zap.NewProductionConfig()
	config.Level = level
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]interface{}{
		"service": service,
	}

	log, err := config.Build(zap.WithCaller(true))
	if err != nil {
		return zap.NewNop().Sugar(), err
	}

	return log.Sugar(), levelErr
}
