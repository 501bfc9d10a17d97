// Package config contains the configuration of the replication simulator.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-replica/p2p/loopback"
	"github.com/spacemeshos/go-replica/p2p/ws"
	"github.com/spacemeshos/go-replica/session"
)

const defaultConfigFileName = "./config.toml"

// Transport kinds.
const (
	TransportLoopback = "loopback"
	TransportWS       = "ws"
)

// Config defines the top level configuration.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Session    session.Config  `mapstructure:"session"`
	Loopback   loopback.Config `mapstructure:"loopback"`
	WS         ws.Config       `mapstructure:"ws"`
	Logging    LoggerConfig    `mapstructure:"logging"`
}

// BaseConfig defines the simulation itself.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	// Transport is either loopback or ws.
	Transport string `mapstructure:"transport"`
	// Clients connect to the server peer.
	Clients int `mapstructure:"clients"`
	// Objects spawned by the server at start.
	Objects int `mapstructure:"objects"`
	// Duration of the simulation, zero runs until interrupted.
	Duration time.Duration `mapstructure:"duration"`
	// MoveInterval is how often the server moves its objects.
	MoveInterval time.Duration `mapstructure:"move-interval"`

	CollectMetrics bool `mapstructure:"metrics"`
	MetricsPort    int  `mapstructure:"metrics-port"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Session:    session.DefaultConfig(),
		Loopback:   loopback.DefaultConfig(),
		WS:         ws.DefaultConfig(),
		Logging:    defaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		ConfigFile:     defaultConfigFileName,
		Transport:      TransportLoopback,
		Clients:        2,
		Objects:        4,
		Duration:       10 * time.Second,
		MoveInterval:   100 * time.Millisecond,
		CollectMetrics: false,
		MetricsPort:    1010,
	}
}

// Validate checks values that would prevent the simulation from running.
func (cfg *Config) Validate() error {
	switch cfg.Transport {
	case TransportLoopback, TransportWS:
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if cfg.Clients < 0 || cfg.Objects < 0 {
		return errors.New("clients and objects can not be negative")
	}
	if cfg.MoveInterval <= 0 {
		return fmt.Errorf("move interval must be positive, got %v", cfg.MoveInterval)
	}
	return cfg.Session.Validate()
}

func (cfg *BaseConfig) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("transport", cfg.Transport)
	encoder.AddInt("clients", cfg.Clients)
	encoder.AddInt("objects", cfg.Objects)
	encoder.AddDuration("duration", cfg.Duration)
	encoder.AddDuration("move interval", cfg.MoveInterval)
	encoder.AddBool("metrics", cfg.CollectMetrics)
	return nil
}

// LoadConfig reads the config file into vip. If fileLocation can not be
// read the default file is tried.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}
	vip.SetConfigFile(fileLocation)
	err := vip.ReadInConfig()
	if err != nil && fileLocation != defaultConfigFileName {
		vip.SetConfigFile(defaultConfigFileName)
		err = vip.ReadInConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}

// Load decodes the file at fileLocation on top of cfg and validates the result.
func Load(fileLocation string, cfg *Config) error {
	vip := viper.New()
	if err := LoadConfig(fileLocation, vip); err != nil {
		return err
	}
	if err := vip.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s: %w", fileLocation, err)
	}
	return cfg.Validate()
}
