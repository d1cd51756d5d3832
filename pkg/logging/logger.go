package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process-wide structured logger
	Logger *zap.Logger
	sugar  *zap.SugaredLogger
)

// InitLogging initializes logging. Debug mode uses a console encoder, anything else JSON.
func InitLogging(level, mode string) error {
	var cfg zap.Config
	if mode == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the process-wide logger
func SetLogger(l *zap.Logger) {
	Logger = l
	sugar = l.Sugar()
}

// Sync flushes buffered log entries
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Infof(format, v...)
	}
}

// Warnf logs warn level messages
func Warnf(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Warnf(format, v...)
	}
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Errorf(format, v...)
	}
}

// Infow logs a message with structured key/value pairs
func Infow(msg string, keysAndValues ...interface{}) {
	if sugar != nil {
		sugar.Infow(msg, keysAndValues...)
	}
}
