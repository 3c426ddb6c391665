package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init installs the global zap logger. LOG_LEVEL selects the level; without
// it the logger reports info and above.
func Init() *zap.Logger {
	level := zapcore.InfoLevel
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, ok := ParseLevel(l); ok {
			level = parsed
		}
	}

	logger := New(level)
	zap.ReplaceGlobals(logger)
	return logger
}

// ParseLevel maps a LOG_LEVEL value to a zap level.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch s {
	case "dev", "development", "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error", "production", "prod":
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}

// New builds a console logger writing to stderr at the given level.
func New(level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}
