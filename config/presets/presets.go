// Package presets contains named configurations that overwrite the defaults.
package presets

import (
	"fmt"
	"slices"
	"time"

	"github.com/spacemeshos/go-replica/config"
)

var presets = map[string]config.Config{}

func register(name string, cfg config.Config) {
	if _, exists := presets[name]; exists {
		panic(fmt.Sprintf("preset %s is already registered", name))
	}
	presets[name] = cfg
}

func init() {
	register("lossy", lossy())
	register("lan", lan())
}

// Options returns the names of the registered presets.
func Options() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns a copy of the preset.
func Get(name string) (config.Config, error) {
	cfg, ok := presets[name]
	if !ok {
		return config.Config{}, fmt.Errorf("preset %s is not registered, options %v", name, Options())
	}
	return cfg, nil
}

// lossy simulates a poor network on the loopback transport.
func lossy() config.Config {
	conf := config.DefaultConfig()
	conf.Transport = config.TransportLoopback
	conf.Loopback.Loss = 0.2
	conf.Loopback.Reorder = 0.1
	conf.Loopback.Seed = 1
	conf.Session.Replication.MTU = 512
	return conf
}

// lan runs clients over websocket on the local host with a high tick rate.
func lan() config.Config {
	conf := config.DefaultConfig()
	conf.Transport = config.TransportWS
	conf.Session.TickInterval = 20 * time.Millisecond
	conf.WS.Rate = 500
	conf.WS.Burst = 100
	return conf
}
