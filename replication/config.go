package replication

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-replica/replication/wire"
)

// Config of the replicator.
type Config struct {
	// MTU is the maximal size of an outgoing SYNC packet.
	MTU int `mapstructure:"mtu"`
	// StrictBugs panics on internal inconsistencies instead of logging them.
	// Meant for tests and development builds.
	StrictBugs bool `mapstructure:"strict-bugs"`
}

// DefaultConfig returns the default replicator configuration.
func DefaultConfig() Config {
	return Config{
		MTU: 1350,
	}
}

// Validate checks that the configuration can carry at least one sync entry.
func (cfg *Config) Validate() error {
	if minimum := wire.MinSyncSize + 1; cfg.MTU < minimum {
		return fmt.Errorf("mtu %d is smaller than %d", cfg.MTU, minimum)
	}
	return nil
}

func (cfg *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddInt("mtu", cfg.MTU)
	encoder.AddBool("strict bugs", cfg.StrictBugs)
	return nil
}
