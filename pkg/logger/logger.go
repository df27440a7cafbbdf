package logger

import (
	"os"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const InfoLogLevel = "info"

var (
	globalLogger *zap.SugaredLogger
	loggerMutex  sync.RWMutex
	once         sync.Once
)

// Logger wraps the zap sugared logger used throughout the library.
type Logger struct {
	*zap.SugaredLogger
}

// InitProduction sets up the global logger. Level and output destination are
// read from viper ("log.level", "log.path") when set; otherwise logs go to
// stderr at info level. Safe to call more than once.
func InitProduction() {
	once.Do(func() {
		level := InfoLogLevel
		if viper.IsSet("log.level") {
			level = viper.GetString("log.level")
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder := zapcore.NewConsoleEncoder(encoderConfig)

		sink := zapcore.Lock(os.Stderr)
		if viper.IsSet("log.path") {
			if f, err := os.OpenFile(
				viper.GetString("log.path"),
				os.O_APPEND|os.O_CREATE|os.O_WRONLY,
				0600,
			); err == nil {
				sink = zapcore.Lock(f)
			}
		}

		core := zapcore.NewCore(encoder, sink, getZapLevel(level))
		setGlobalLogger(zap.New(core).Named("gossh").Sugar())
	})
}

// Get returns the global logger, initializing it if needed.
func Get() *Logger {
	loggerMutex.RLock()
	l := globalLogger
	loggerMutex.RUnlock()

	if l == nil {
		InitProduction()
		loggerMutex.RLock()
		l = globalLogger
		loggerMutex.RUnlock()
	}
	return &Logger{l}
}

// SetGlobalLogger replaces the global logger. Used by tests to capture output.
func SetGlobalLogger(l *zap.Logger) {
	setGlobalLogger(l.Sugar())
}

func setGlobalLogger(l *zap.SugaredLogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = l
}

func getZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
