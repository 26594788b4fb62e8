package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// Init initializes the global logger. Production config when ENV=production,
// development config otherwise.
func Init() {
	env := os.Getenv("ENV")
	var err error
	if env == "production" {
		Logger, err = zap.NewProduction()
	} else {
		Logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
}

// Close flushes buffered log entries.
func Close() {
	if err := Logger.Sync(); err != nil {
		log.Printf("failed to flush log entries: %v", err)
	}
}

func L() *zap.Logger {
	if Logger == nil {
		Init()
	}
	return Logger
}

func Info(msg string, fields ...zapcore.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	L().Error(msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	L().Debug(msg, fields...)
}
