// Package sim runs a server and a number of clients that replicate a shared
// level, and reports whether the clients converged to the server state.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/config"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
	"github.com/spacemeshos/go-replica/p2p/loopback"
	"github.com/spacemeshos/go-replica/p2p/ws"
	"github.com/spacemeshos/go-replica/scene"
	"github.com/spacemeshos/go-replica/session"
)

// Loggers used by a simulation, by module name.
type Loggers func(module string) *zap.Logger

type Opt func(*Sim)

func WithLoggers(loggers Loggers) Opt {
	return func(s *Sim) {
		s.loggers = loggers
	}
}

func WithWallclock(clock clockwork.Clock) Opt {
	return func(s *Sim) {
		s.clock = clock
	}
}

// ClientReport compares the level of one client with the server level.
type ClientReport struct {
	Peer      types.PeerID
	Objects   int
	Expected  int
	Converged bool
}

type Report struct {
	Moves   int
	Clients []ClientReport
}

// Converged is true if every client matches the server.
func (r *Report) Converged() bool {
	for _, c := range r.Clients {
		if !c.Converged {
			return false
		}
	}
	return true
}

type Sim struct {
	cfg     config.Config
	loggers Loggers
	clock   clockwork.Clock
	logger  *zap.Logger

	server  *peer
	clients []*peer
	objects []types.ObjectID
	moves   int
}

type peer struct {
	host    p2p.Host
	world   *World
	session *session.Session
}

func New(cfg config.Config, opts ...Opt) *Sim {
	s := &Sim{
		cfg:     cfg,
		loggers: func(string) *zap.Logger { return zap.NewNop() },
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.loggers("app")
	return s
}

func (s *Sim) Config() config.Config {
	return s.cfg
}

// Run builds the peers on the configured transport, spawns the objects and
// moves them until ctx is canceled or the duration elapsed. The clients are
// compared with the server before the peers are stopped.
func (s *Sim) Run(ctx context.Context) (*Report, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	var err error
	switch s.cfg.Transport {
	case config.TransportLoopback:
		err = s.loopback()
	case config.TransportWS:
		err = s.websocket(ctx, eg)
	}
	if err == nil {
		err = s.run(ctx)
	}
	report, rerr := s.report()
	cancel()
	s.stop()
	return report, errors.Join(err, rerr, eg.Wait())
}

// Serve runs only the server peer, accepting websocket clients on ln.
func (s *Sim) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	server := ws.NewServer(ws.WithLogger(s.loggers("p2p")), ws.WithConfig(s.cfg.WS))
	eg.Go(func() error { return server.Run(ctx, ln) })
	var err error
	if s.server, err = s.newPeer(server); err == nil {
		err = s.run(ctx)
	}
	cancel()
	s.stop()
	return errors.Join(err, eg.Wait())
}

// Join connects a single client to the server at url and logs the objects
// it sees until ctx is canceled or the server goes away.
func (s *Sim) Join(ctx context.Context, url string) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	host, err := ws.Dial(ctx, url, ws.WithLogger(s.loggers("p2p")), ws.WithConfig(s.cfg.WS))
	if err != nil {
		return err
	}
	client, err := s.newPeer(host)
	if err != nil {
		host.Close()
		return err
	}
	s.clients = append(s.clients, client)
	defer s.stop()
	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.session.Done():
			return errors.New("disconnected from server")
		case <-ticker.Chan():
			err := client.session.Do(ctx, func(*scene.Tree) error {
				s.logger.Info("level", log.Peer(host.LocalPeer()), zap.Int("objects", len(client.world.Snapshot())))
				return nil
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

func (s *Sim) newPeer(host p2p.Host) (*peer, error) {
	tree := scene.New(scene.WithLogger(s.loggers("scene")))
	world, err := NewWorld(tree)
	if err != nil {
		return nil, err
	}
	sess := session.New(host, tree,
		session.WithLogger(s.loggers("session")),
		session.WithModuleLoggers(s.loggers("replication"), s.loggers("pathcache")),
		session.WithConfig(s.cfg.Session),
		session.WithWallclock(s.clock),
	)
	sess.Start()
	return &peer{host: host, world: world, session: sess}, nil
}

func (s *Sim) loopback() error {
	network := loopback.New(
		loopback.WithLogger(s.loggers("p2p")),
		loopback.WithConfig(s.cfg.Loopback),
	)
	var err error
	if s.server, err = s.newPeer(network.Join()); err != nil {
		return err
	}
	for range s.cfg.Clients {
		client, err := s.newPeer(network.Join())
		if err != nil {
			return err
		}
		s.clients = append(s.clients, client)
		if err := network.Connect(types.ServerPeer, client.host.LocalPeer()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) websocket(ctx context.Context, eg *errgroup.Group) error {
	ln, err := net.Listen("tcp", s.cfg.WS.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.WS.Listen, err)
	}
	server := ws.NewServer(ws.WithLogger(s.loggers("p2p")), ws.WithConfig(s.cfg.WS))
	eg.Go(func() error { return server.Run(ctx, ln) })
	if s.server, err = s.newPeer(server); err != nil {
		return err
	}
	url := fmt.Sprintf("ws://%s%s", ln.Addr(), s.cfg.WS.Path)
	for range s.cfg.Clients {
		host, err := ws.Dial(ctx, url, ws.WithLogger(s.loggers("p2p")), ws.WithConfig(s.cfg.WS))
		if err != nil {
			return err
		}
		client, err := s.newPeer(host)
		if err != nil {
			host.Close()
			return err
		}
		s.clients = append(s.clients, client)
	}
	return nil
}

func (s *Sim) run(ctx context.Context) error {
	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}
	if err := s.server.session.Do(ctx, s.spawn); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	s.logger.Info("spawned", zap.Int("objects", len(s.objects)), zap.Int("clients", len(s.clients)))
	ticker := s.clock.NewTicker(s.cfg.MoveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := s.server.session.Do(ctx, s.move); err != nil && ctx.Err() == nil {
				return fmt.Errorf("move: %w", err)
			}
		}
	}
}

// spawn creates players and crates in turns. Every third object is only
// visible to even peers.
func (s *Sim) spawn(tree *scene.Tree) error {
	sp := s.server.world.Spawner
	for i := range s.cfg.Objects {
		var (
			obj types.ObjectID
			err error
		)
		if i%2 == 0 {
			obj, err = sp.Spawn(PlayerScene, fmt.Sprintf("Player%d", i))
		} else {
			obj, err = sp.SpawnCustom(codec.Vec2(float64(i), 0), fmt.Sprintf("Crate%d", i))
		}
		if err != nil {
			return err
		}
		if i%3 == 2 {
			sync, ok := s.synchronizer(tree, obj)
			if !ok {
				return fmt.Errorf("object %v has no synchronizer", obj)
			}
			sync.SetVisibilityFilter(evenPeers)
		}
		s.objects = append(s.objects, obj)
	}
	return nil
}

// evenPeers rejects BroadcastPeer, so the object is never public.
func evenPeers(peer types.PeerID) bool {
	return peer != types.BroadcastPeer && peer%2 == 0
}

func (s *Sim) synchronizer(tree *scene.Tree, obj types.ObjectID) (*scene.Synchronizer, bool) {
	for _, child := range tree.Children(obj) {
		if sync, ok := tree.Synchronizer(child); ok {
			return sync, true
		}
	}
	return nil, false
}

// move walks every object along a circle.
func (s *Sim) move(tree *scene.Tree) error {
	s.moves++
	for i, obj := range s.objects {
		angle := float64(s.moves)/10 + float64(i)
		pos := codec.Vec2(math.Round(100*math.Cos(angle)), math.Round(100*math.Sin(angle)))
		if err := tree.Set(obj, "position", pos); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) expected(peer types.PeerID) int {
	n := 0
	for i := range s.objects {
		if i%3 != 2 || evenPeers(peer) {
			n++
		}
	}
	return n
}

// report waits for the clients to settle for a few ticks and compares their levels.
func (s *Sim) report() (*Report, error) {
	if s.server == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*s.cfg.Session.TickInterval+time.Second)
	defer cancel()
	var want map[string]Object
	if err := s.server.session.Do(ctx, func(*scene.Tree) error {
		want = s.server.world.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}
	report := &Report{Moves: s.moves}
	for _, c := range s.clients {
		cr, err := s.compare(ctx, c, want)
		if err != nil {
			return nil, err
		}
		s.logger.Info("client report",
			log.Peer(cr.Peer),
			zap.Int("objects", cr.Objects),
			zap.Int("expected", cr.Expected),
			zap.Bool("converged", cr.Converged),
		)
		report.Clients = append(report.Clients, cr)
	}
	return report, nil
}

func (s *Sim) compare(ctx context.Context, c *peer, want map[string]Object) (ClientReport, error) {
	cr := ClientReport{Peer: c.host.LocalPeer(), Expected: s.expected(c.host.LocalPeer())}
	settle := s.clock.NewTicker(s.cfg.Session.TickInterval)
	defer settle.Stop()
	for {
		err := c.session.Do(ctx, func(*scene.Tree) error {
			got := c.world.Snapshot()
			cr.Objects = len(got)
			cr.Converged = cr.Objects == cr.Expected
			for name, o := range got {
				w, ok := want[name]
				if !ok || w.Color != o.Color || !w.Position.Equal(o.Position) {
					cr.Converged = false
				}
			}
			return nil
		})
		if err != nil || cr.Converged {
			return cr, err
		}
		select {
		case <-ctx.Done():
			return cr, nil
		case <-settle.Chan():
		}
	}
}

func (s *Sim) stop() {
	for _, p := range append(s.clients, s.server) {
		if p == nil {
			continue
		}
		if err := p.session.Stop(); err != nil {
			s.logger.Warn("session stopped with error", zap.Error(err))
		}
		if err := p.host.Close(); err != nil {
			s.logger.Debug("close host", zap.Error(err))
		}
	}
}
