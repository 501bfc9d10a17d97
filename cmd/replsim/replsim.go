// Package replsim is the command line of the replication simulator.
package replsim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdp "github.com/spacemeshos/go-replica/cmd"
	"github.com/spacemeshos/go-replica/config"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/metrics"
	"github.com/spacemeshos/go-replica/sim"
)

// Cmd runs a server and its clients in one process and reports whether the
// clients converged.
var Cmd = &cobra.Command{
	Use:          "replsim",
	Short:        "simulate scene replication between a server and its clients",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *sim.Sim, logger *zap.Logger) error {
			report, err := s.Run(ctx)
			if err != nil {
				return err
			}
			if report == nil {
				return nil
			}
			logger.Info("simulation finished",
				zap.Int("moves", report.Moves),
				zap.Bool("converged", report.Converged()),
			)
			if !report.Converged() {
				return errors.New("clients did not converge")
			}
			return nil
		})
	},
}

// ServeCmd runs the server peer of a websocket simulation.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "accept websocket clients and replicate the level to them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *sim.Sim, logger *zap.Logger) error {
			ln, err := net.Listen("tcp", s.Config().WS.Listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", s.Config().WS.Listen, err)
			}
			return s.Serve(ctx, ln)
		})
	},
}

// JoinCmd connects a single client to a server started with serve.
var JoinCmd = &cobra.Command{
	Use:   "join <url>",
	Short: "join a websocket server, e.g. ws://127.0.0.1:7580/replica",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *sim.Sim, logger *zap.Logger) error {
			return s.Join(ctx, args[0])
		})
	},
}

// VersionCmd returns the current version of replsim.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(cmdp.Version)
		if cmdp.Commit != "" {
			fmt.Printf("+%s", cmdp.Commit)
		}
		fmt.Println()
	},
}

func init() {
	cmdp.AddCommands(Cmd)
	Cmd.AddCommand(ServeCmd, JoinCmd, VersionCmd)
}

type runner func(ctx context.Context, s *sim.Sim, logger *zap.Logger) error

func run(cmd *cobra.Command, fn runner) error {
	conf, err := cmdp.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Logging.Encoder == config.JSONLogEncoder {
		log.JSONLog(true)
	}
	loggers, err := newLoggers(&conf.Logging)
	if err != nil {
		return err
	}
	logger := loggers("app")
	logger.Info("starting",
		zap.String("version", cmdp.Version),
		zap.String("commit", cmdp.Commit),
		zap.Object("config", &conf.BaseConfig),
		zap.Object("session", &conf.Session),
	)
	stop := cmdp.HandleInterrupt(logger)
	defer stop()
	ctx := cmdp.Ctx()
	if conf.CollectMetrics {
		addr, err := metrics.StartCollectingMetrics(ctx, net.JoinHostPort("", strconv.Itoa(conf.MetricsPort)), logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("collecting metrics", zap.Stringer("address", addr))
	}
	return fn(ctx, sim.New(*conf, sim.WithLoggers(loggers)), logger)
}

// newLoggers creates a logger per module with the configured level.
// Unknown modules log at the app level.
func newLoggers(cfg *config.LoggerConfig) (sim.Loggers, error) {
	modules := []string{"app", "session", "replication", "pathcache", "p2p", "scene"}
	loggers := make(map[string]*zap.Logger, len(modules))
	for _, module := range modules {
		level, err := cfg.Level(module)
		if err != nil {
			return nil, fmt.Errorf("logging level of %s: %w", module, err)
		}
		loggers[module] = log.NewWithLevel(module, level)
	}
	return func(module string) *zap.Logger {
		if logger, ok := loggers[module]; ok {
			return logger
		}
		return loggers["app"].Named(module)
	}, nil
}
