// Package ws carries replication traffic over websocket connections.
//
// The Server is the server peer. Every accepted client is assigned the next
// peer id, starting at 2, and learns it from a welcome frame. Both channels
// share the ordered websocket stream, unreliable packets differ only in being
// dropped instead of queued when a peer falls behind.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
)

type Opt func(*options)

type options struct {
	logger *zap.Logger
	cfg    Config
}

func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(o *options) {
		o.cfg = cfg
	}
}

func newOptions(opts []Opt) options {
	o := options{logger: zap.NewNop(), cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Server implements p2p.Host and http.Handler.
type Server struct {
	logger   *zap.Logger
	cfg      Config
	tracker  p2p.Tracker
	cors     *cors.Cors
	upgrader websocket.Upgrader

	ctx     context.Context
	cancel  context.CancelFunc
	eg      errgroup.Group
	packets chan p2p.Packet
	events  chan p2p.Event

	mu     sync.Mutex
	next   types.PeerID
	conns  map[types.PeerID]*conn
	closed bool
}

func NewServer(opts ...Opt) *Server {
	o := newOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:  o.logger,
		cfg:     o.cfg,
		tracker: p2p.NewTracker("ws"),
		cors:    cors.New(cors.Options{AllowedOrigins: o.cfg.AllowedOrigins}),
		ctx:     ctx,
		cancel:  cancel,
		packets: make(chan p2p.Packet, o.cfg.QueueSize),
		events:  make(chan p2p.Event, o.cfg.QueueSize),
		next:    types.ServerPeer + 1,
		conns:   map[types.PeerID]*conn{},
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: o.cfg.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// checkOrigin accepts clients without an Origin header and browsers from
// an allowed origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return true
	}
	return s.cors.OriginAllowed(r)
}

// Run serves websocket clients on the listener until ctx is canceled, then closes the server.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: s.cfg.HandshakeTimeout}
	s.logger.Info("listening", zap.Stringer("address", ln.Addr()), zap.String("path", s.cfg.Path))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %v: %w", ln.Addr(), err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	err := eg.Wait()
	return errors.Join(err, s.Close())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	peer := s.next
	s.next++
	c := newConn(s.logger, s.cfg, s.tracker, ws, peer)
	s.conns[peer] = c
	s.eg.Go(func() error {
		s.serve(c)
		return nil
	})
	s.mu.Unlock()
}

func (s *Server) serve(c *conn) {
	if !s.notify(p2p.Event{Peer: c.peer, Connected: true}) {
		s.remove(c)
		c.ws.Close()
		return
	}
	s.tracker.Connected()
	err := c.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err == nil {
		err = c.ws.WriteMessage(websocket.BinaryMessage, welcome(c.peer))
	}
	if err != nil {
		s.logger.Debug("welcome failed", log.Peer(c.peer), zap.Error(err))
		c.ws.Close()
	} else {
		s.logger.Info("peer connected", log.Peer(c.peer), zap.Stringer("remote", c.ws.RemoteAddr()))
		if err := c.run(s.ctx, s.deliver); err != nil {
			s.logger.Debug("connection failed", log.Peer(c.peer), zap.Error(err))
		}
		s.logger.Info("peer disconnected", log.Peer(c.peer))
	}
	s.remove(c)
	s.tracker.Disconnected()
	s.notify(p2p.Event{Peer: c.peer})
}

func (s *Server) remove(c *conn) {
	c.close()
	s.mu.Lock()
	delete(s.conns, c.peer)
	s.mu.Unlock()
}

func (s *Server) deliver(ctx context.Context, pkt p2p.Packet) bool {
	if pkt.Reliable {
		select {
		case s.packets <- pkt:
			return true
		case <-ctx.Done():
			return false
		}
	}
	select {
	case s.packets <- pkt:
	default:
		s.tracker.Dropped("queue")
	}
	return true
}

func (s *Server) notify(ev p2p.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Server) LocalPeer() types.PeerID {
	return types.ServerPeer
}

func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Peers returns the connected peers in ascending order.
func (s *Server) Peers() []types.PeerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := make([]types.PeerID, 0, len(s.conns))
	for peer := range s.conns {
		peers = append(peers, peer)
	}
	slices.Sort(peers)
	return peers
}

func (s *Server) Send(peer types.PeerID, data []byte, reliable bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return p2p.ErrClosed
	}
	var targets []*conn
	if peer == types.BroadcastPeer {
		for _, c := range s.conns {
			targets = append(targets, c)
		}
	} else if c, ok := s.conns[peer]; ok {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	if peer != types.BroadcastPeer && len(targets) == 0 {
		return fmt.Errorf("%w: %v", p2p.ErrNotConnected, peer)
	}
	var errs []error
	for _, c := range targets {
		errs = append(errs, c.send(data, reliable))
	}
	return errors.Join(errs...)
}

// Disconnect closes the connection of a peer.
func (s *Server) Disconnect(peer types.PeerID) error {
	s.mu.Lock()
	c, ok := s.conns[peer]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %v", p2p.ErrNotConnected, peer)
	}
	c.close()
	return nil
}

func (s *Server) Packets() <-chan p2p.Packet {
	return s.packets
}

func (s *Server) Events() <-chan p2p.Event {
	return s.events
}

// Close disconnects every client, waits for their connections to stop and
// closes the channels.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, c := range s.conns {
		c.close()
	}
	s.mu.Unlock()
	s.cancel()
	err := s.eg.Wait()
	close(s.packets)
	close(s.events)
	return err
}
