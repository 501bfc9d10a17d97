package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cfg "github.com/spacemeshos/go-replica/config"
	"github.com/spacemeshos/go-replica/config/presets"
)

var config = cfg.DefaultConfig()

// overrides copy a flag value from the flag-bound config, keyed by flag name.
var overrides = map[string]func(dst *cfg.Config){
	"config":        func(dst *cfg.Config) { dst.ConfigFile = config.ConfigFile },
	"transport":     func(dst *cfg.Config) { dst.Transport = config.Transport },
	"clients":       func(dst *cfg.Config) { dst.Clients = config.Clients },
	"objects":       func(dst *cfg.Config) { dst.Objects = config.Objects },
	"duration":      func(dst *cfg.Config) { dst.Duration = config.Duration },
	"move-interval": func(dst *cfg.Config) { dst.MoveInterval = config.MoveInterval },
	"metrics":       func(dst *cfg.Config) { dst.CollectMetrics = config.CollectMetrics },
	"metrics-port":  func(dst *cfg.Config) { dst.MetricsPort = config.MetricsPort },
	"log-encoder":   func(dst *cfg.Config) { dst.Logging.Encoder = config.Logging.Encoder },
	"tick":          func(dst *cfg.Config) { dst.Session.TickInterval = config.Session.TickInterval },
	"mtu":           func(dst *cfg.Config) { dst.Session.Replication.MTU = config.Session.Replication.MTU },
	"strict-bugs":   func(dst *cfg.Config) { dst.Session.Replication.StrictBugs = config.Session.Replication.StrictBugs },
	"loss":          func(dst *cfg.Config) { dst.Loopback.Loss = config.Loopback.Loss },
	"reorder":       func(dst *cfg.Config) { dst.Loopback.Reorder = config.Loopback.Reorder },
	"seed":          func(dst *cfg.Config) { dst.Loopback.Seed = config.Loopback.Seed },
	"listen":        func(dst *cfg.Config) { dst.WS.Listen = config.WS.Listen },
	"path":          func(dst *cfg.Config) { dst.WS.Path = config.WS.Path },
	"rate":          func(dst *cfg.Config) { dst.WS.Rate = config.WS.Rate },
	"burst":         func(dst *cfg.Config) { dst.WS.Burst = config.WS.Burst },
}

// AddCommands adds cobra commands to the app.
func AddCommands(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("preset", "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	cmd.PersistentFlags().StringVarP(&config.ConfigFile,
		"config", "c", config.ConfigFile, "Load configuration from file")
	cmd.PersistentFlags().StringVar(&config.Transport, "transport",
		config.Transport, "transport between the peers: loopback or ws")
	cmd.PersistentFlags().IntVar(&config.Clients, "clients",
		config.Clients, "number of clients connected to the server")
	cmd.PersistentFlags().IntVar(&config.Objects, "objects",
		config.Objects, "number of objects spawned by the server")
	cmd.PersistentFlags().DurationVar(&config.Duration, "duration",
		config.Duration, "how long to run, zero runs until interrupted")
	cmd.PersistentFlags().DurationVar(&config.MoveInterval, "move-interval",
		config.MoveInterval, "how often the server moves its objects")
	cmd.PersistentFlags().BoolVar(&config.CollectMetrics, "metrics",
		config.CollectMetrics, "collect metrics")
	cmd.PersistentFlags().IntVar(&config.MetricsPort, "metrics-port",
		config.MetricsPort, "metric server port")
	cmd.PersistentFlags().StringVar(&config.Logging.Encoder, "log-encoder",
		config.Logging.Encoder, "Log as JSON instead of plain text")

	/** ======================== Replication Flags ========================== **/
	cmd.PersistentFlags().DurationVar(&config.Session.TickInterval, "tick",
		config.Session.TickInterval, "interval of the network process tick")
	cmd.PersistentFlags().IntVar(&config.Session.Replication.MTU, "mtu",
		config.Session.Replication.MTU, "maximal size of a sync packet")
	cmd.PersistentFlags().BoolVar(&config.Session.Replication.StrictBugs, "strict-bugs",
		config.Session.Replication.StrictBugs, "panic on internal replication inconsistencies")

	/** ======================== Transport Flags ========================== **/
	cmd.PersistentFlags().Float64Var(&config.Loopback.Loss, "loss",
		config.Loopback.Loss, "probability to drop an unreliable loopback packet")
	cmd.PersistentFlags().Float64Var(&config.Loopback.Reorder, "reorder",
		config.Loopback.Reorder, "probability to reorder an unreliable loopback packet")
	cmd.PersistentFlags().Uint64Var(&config.Loopback.Seed, "seed",
		config.Loopback.Seed, "seed of the loopback loss and reorder decisions")
	cmd.PersistentFlags().StringVar(&config.WS.Listen, "listen",
		config.WS.Listen, "address for listening")
	cmd.PersistentFlags().StringVar(&config.WS.Path, "path",
		config.WS.Path, "http path of the websocket endpoint")
	cmd.PersistentFlags().Float64Var(&config.WS.Rate, "rate",
		config.WS.Rate, "inbound packets per second accepted from a peer, zero is unlimited")
	cmd.PersistentFlags().IntVar(&config.WS.Burst, "burst",
		config.WS.Burst, "burst of the inbound rate limit")

	// Bind Flags to config
	err := viper.BindPFlags(cmd.PersistentFlags())
	if err != nil {
		fmt.Println("an error has occurred while binding flags:", err)
	}
}

// LoadConfig builds the config of a command: the preset or the defaults,
// then the config file, then the flags that were set explicitly.
// A missing default config file is not an error.
func LoadConfig(cmd *cobra.Command) (*cfg.Config, error) {
	conf := cfg.DefaultConfig()
	if name := viper.GetString("preset"); name != "" {
		preset, err := presets.Get(name)
		if err != nil {
			return nil, err
		}
		conf = preset
	}

	fileLocation := viper.GetString("config")
	vip := viper.New()
	if err := cfg.LoadConfig(fileLocation, vip); err != nil {
		if cmd.Flags().Changed("config") || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else if err := vip.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := EnsureCLIFlags(cmd, &conf); err != nil {
		return nil, fmt.Errorf("mapping cli flags to config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &conf, nil
}

// EnsureCLIFlags overwrites the fields of appCFG set on the command line.
func EnsureCLIFlags(cmd *cobra.Command, appCFG *cfg.Config) error {
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "preset" {
			return
		}
		apply, ok := overrides[f.Name]
		if !ok {
			err = errors.Join(err, fmt.Errorf("flag %s is not mapped to config", f.Name))
			return
		}
		apply(appCFG)
	})
	return err
}
