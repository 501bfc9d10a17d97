package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = "console"
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = "json"
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder                LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel         string     `mapstructure:"app"`
	SessionLoggerLevel     string     `mapstructure:"session"`
	ReplicationLoggerLevel string     `mapstructure:"replication"`
	PathCacheLoggerLevel   string     `mapstructure:"pathcache"`
	P2PLoggerLevel         string     `mapstructure:"p2p"`
	SceneLoggerLevel       string     `mapstructure:"scene"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:                ConsoleLogEncoder,
		AppLoggerLevel:         defaultLoggingLevel.String(),
		SessionLoggerLevel:     defaultLoggingLevel.String(),
		ReplicationLoggerLevel: zapcore.WarnLevel.String(),
		PathCacheLoggerLevel:   zapcore.WarnLevel.String(),
		P2PLoggerLevel:         defaultLoggingLevel.String(),
		SceneLoggerLevel:       zapcore.WarnLevel.String(),
	}
}

// Level returns the configured level of a module logger.
func (cfg *LoggerConfig) Level(module string) (zap.AtomicLevel, error) {
	var level string
	switch module {
	case "app":
		level = cfg.AppLoggerLevel
	case "session":
		level = cfg.SessionLoggerLevel
	case "replication":
		level = cfg.ReplicationLoggerLevel
	case "pathcache":
		level = cfg.PathCacheLoggerLevel
	case "p2p":
		level = cfg.P2PLoggerLevel
	case "scene":
		level = cfg.SceneLoggerLevel
	default:
		return zap.AtomicLevel{}, fmt.Errorf("unknown logger %q", module)
	}
	return zap.ParseAtomicLevel(level)
}
