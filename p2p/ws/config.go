package ws

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
	// MaxPacketSize bounds payloads in both directions.
	MaxPacketSize int `mapstructure:"max-packet-size"`
	// QueueSize is the number of packets buffered per connection and direction.
	QueueSize int `mapstructure:"queue-size"`
	// Rate limits inbound packets per second from every peer. Zero disables the limit.
	// Unreliable packets over the limit are dropped, reliable ones wait.
	Rate             float64       `mapstructure:"rate"`
	Burst            int           `mapstructure:"burst"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`
	// AllowedOrigins are matched against the Origin header of browser clients.
	// Clients that send no Origin header are always accepted.
	AllowedOrigins []string `mapstructure:"allowed-origins"`
}

func DefaultConfig() Config {
	return Config{
		Listen:           "127.0.0.1:7580",
		Path:             "/replica",
		MaxPacketSize:    64 << 10,
		QueueSize:        256,
		Rate:             0,
		Burst:            64,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		AllowedOrigins:   []string{"*"},
	}
}

func (cfg Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("listen", cfg.Listen)
	encoder.AddString("path", cfg.Path)
	encoder.AddInt("max packet size", cfg.MaxPacketSize)
	encoder.AddInt("queue size", cfg.QueueSize)
	encoder.AddFloat64("rate", cfg.Rate)
	encoder.AddInt("burst", cfg.Burst)
	encoder.AddDuration("write timeout", cfg.WriteTimeout)
	encoder.AddDuration("handshake timeout", cfg.HandshakeTimeout)
	zap.Strings("allowed origins", cfg.AllowedOrigins).AddTo(encoder)
	return nil
}
