package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	logger, err := loggerConfig(cfg).Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// loggerConfig: без LOG_FORMAT debug получает цветной console, остальные уровни - json.
func loggerConfig(cfg LogConfig) zap.Config {
	level := parseLogLevel(cfg.Level)

	var config zap.Config
	if level == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// LOG_FORMAT перекрывает выбор по уровню
	switch strings.ToLower(cfg.Format) {
	case "console":
		config.Encoding = "console"
	case "json":
		config.Encoding = "json"
		if level == zapcore.DebugLevel {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}

	config.Level = zap.NewAtomicLevelAt(level)

	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.InitialFields = map[string]interface{}{"service": "imgrelay"}

	return config
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
