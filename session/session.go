// Package session runs replication for one peer.
//
// A Session owns a scene tree, a path cache and a replicator, and drives
// them from a single goroutine: transport events, inbound packets and
// network ticks are handled one at a time, so none of them needs locking.
// Other goroutines access the scene with Do.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
	"github.com/spacemeshos/go-replica/pathcache"
	"github.com/spacemeshos/go-replica/replication"
	"github.com/spacemeshos/go-replica/replication/wire"
	"github.com/spacemeshos/go-replica/scene"
)

var ErrStopped = errors.New("session stopped")

type Config struct {
	// TickInterval is the period of network processing, one SYNC round per tick.
	TickInterval time.Duration      `mapstructure:"tick-interval"`
	Replication  replication.Config `mapstructure:"replication"`
	PathCache    pathcache.Config   `mapstructure:"pathcache"`
	Codec        codec.Config       `mapstructure:"codec"`
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 50 * time.Millisecond,
		Replication:  replication.DefaultConfig(),
		PathCache:    pathcache.DefaultConfig(),
		Codec:        codec.DefaultConfig(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", cfg.TickInterval)
	}
	return cfg.Replication.Validate()
}

func (cfg *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddDuration("tick interval", cfg.TickInterval)
	if err := encoder.AddObject("replication", &cfg.Replication); err != nil {
		return err
	}
	if err := encoder.AddObject("pathcache", cfg.PathCache); err != nil {
		return err
	}
	return encoder.AddObject("codec", cfg.Codec)
}

type Opt func(*Session)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithModuleLoggers overwrites the loggers of the replicator and the path cache.
// By default they are named children of the session logger.
func WithModuleLoggers(replication, pathcache *zap.Logger) Opt {
	return func(s *Session) {
		s.replLogger = replication
		s.cacheLogger = pathcache
	}
}

func WithConfig(cfg Config) Opt {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithWallclock sets the clock that drives ticks and sync intervals.
func WithWallclock(clock clockwork.Clock) Opt {
	return func(s *Session) {
		s.wallclock = clock
	}
}

type Session struct {
	logger      *zap.Logger
	replLogger  *zap.Logger
	cacheLogger *zap.Logger
	cfg         Config
	wallclock   clockwork.Clock

	host       p2p.Host
	tree       *scene.Tree
	cache      *pathcache.Cache
	replicator *replication.Replicator

	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group
	calls  chan func()
	done   chan struct{}
	ticks  uint64
}

// New wires a session for the local peer of host. The tree hooks are set to the replicator.
func New(host p2p.Host, tree *scene.Tree, opts ...Opt) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		wallclock: clockwork.NewRealClock(),
		host:      host,
		tree:      tree,
		ctx:       ctx,
		cancel:    cancel,
		calls:     make(chan func()),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	local := zap.Stringer("local", host.LocalPeer())
	s.logger = s.logger.With(local)
	if s.replLogger == nil {
		s.replLogger = s.logger.Named("replication")
	} else {
		s.replLogger = s.replLogger.With(local)
	}
	if s.cacheLogger == nil {
		s.cacheLogger = s.logger.Named("pathcache")
	} else {
		s.cacheLogger = s.cacheLogger.With(local)
	}
	s.cache = pathcache.New(host, tree,
		pathcache.WithLogger(s.cacheLogger),
		pathcache.WithConfig(s.cfg.PathCache),
	)
	s.replicator = replication.New(host, s.cache, tree, tree,
		replication.WithLogger(s.replLogger),
		replication.WithConfig(s.cfg.Replication),
		replication.WithWallclock(s.wallclock),
		replication.WithCodec(codec.New(codec.WithConfig(s.cfg.Codec))),
	)
	tree.SetHooks(s.replicator)
	return s
}

// Replicator is exposed for inspection. It must only be used inside Do.
func (s *Session) Replicator() *replication.Replicator {
	return s.replicator
}

// Start runs the session loop in the background.
func (s *Session) Start() {
	s.logger.Info("started", zap.Inline(&s.cfg))
	s.eg.Go(func() error {
		defer close(s.done)
		return s.run()
	})
}

// Stop terminates the loop and waits for it. The host is not closed.
func (s *Session) Stop() error {
	s.cancel()
	err := s.eg.Wait()
	s.logger.Info("stopped", zap.Uint64("ticks", s.ticks))
	return err
}

// Done is closed when the loop exits, either after Stop or after the host was closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Do runs fn with the tree on the session goroutine and waits for it.
func (s *Session) Do(ctx context.Context, fn func(tree *scene.Tree) error) error {
	result := make(chan error, 1)
	call := func() { result <- fn(s.tree) }
	select {
	case s.calls <- call:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run() error {
	ticker := s.wallclock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	packets, events := s.host.Packets(), s.host.Events()
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				s.closed()
				return nil
			}
			s.onPeer(ev)
		case pkt, ok := <-packets:
			if !ok {
				s.closed()
				return nil
			}
			s.onPacket(pkt)
		case call := <-s.calls:
			call()
		case <-ticker.Chan():
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.ticks++
	s.replicator.OnNetworkProcess()
	s.tree.Flush()
}

func (s *Session) onPeer(ev p2p.Event) {
	s.logger.Debug("peer changed", log.Peer(ev.Peer), zap.Bool("connected", ev.Connected))
	if ev.Connected {
		s.cache.OnPeerChange(ev.Peer, true)
		if err := s.replicator.OnPeerChange(ev.Peer, true); err != nil {
			s.logger.Warn("peer connect", log.Peer(ev.Peer), zap.Error(err))
		}
		return
	}
	if err := s.replicator.OnPeerChange(ev.Peer, false); err != nil {
		s.logger.Warn("peer disconnect", log.Peer(ev.Peer), zap.Error(err))
	}
	s.cache.OnPeerChange(ev.Peer, false)
	s.tree.Flush()
}

func (s *Session) onPacket(pkt p2p.Packet) {
	if len(pkt.Data) == 0 {
		s.logger.Debug("empty packet", log.Peer(pkt.From))
		return
	}
	var err error
	switch pkt.Data[0] {
	case wire.CmdSimplifyPath, wire.CmdConfirmPath:
		err = s.cache.HandlePacket(pkt.From, pkt.Data)
	default:
		err = s.replicator.HandlePacket(pkt.From, pkt.Data)
	}
	if err != nil {
		s.logger.Debug("packet rejected",
			log.Peer(pkt.From),
			log.Command(pkt.Data[0]),
			zap.Bool("reliable", pkt.Reliable),
			zap.Error(err),
		)
	}
}

// closed resets replication once the host is gone. Remote objects are freed.
func (s *Session) closed() {
	s.logger.Info("host closed")
	s.replicator.OnReset()
	s.cache.Reset()
	s.tree.Flush()
}
