package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger from the environment: ENV picks the
// console encoder (JSON in production, colored console otherwise),
// LOG_LEVEL sets the minimum level and LOG_FILE adds a rotated JSON file
// core.
func NewLogger() (*zap.Logger, error) {
	env := strings.ToLower(os.Getenv("ENV"))
	production := env == "production"

	level := parseLevel(os.Getenv("LOG_LEVEL"))

	var cores []zapcore.Core

	consoleCfg := encoderConfig(production)
	var consoleEncoder zapcore.Encoder
	if production {
		consoleEncoder = zapcore.NewJSONEncoder(consoleCfg)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleCfg)
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}

		fileCfg := encoderConfig(true)
		fileCfg.StacktraceKey = "stacktrace"
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderConfig(production bool) zapcore.EncoderConfig {
	levelEncoder := zapcore.CapitalColorLevelEncoder
	if production {
		levelEncoder = zapcore.LowercaseLevelEncoder
	}

	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
