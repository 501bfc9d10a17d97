// Package loopback is an in-process transport for simulations and tests.
//
// Every host of a Network gets the next peer id, starting with the server
// peer. Reliable packets are delivered in order. Unreliable packets are
// dropped and reordered according to the Config, driven by a seeded
// generator so runs are reproducible.
package loopback

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/seehuhn/mt19937"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
)

type Config struct {
	// Loss is the probability that an unreliable packet is dropped.
	Loss float64 `mapstructure:"loss"`
	// Reorder is the probability that an unreliable packet is held back and
	// delivered after the next one on the same link.
	Reorder       float64 `mapstructure:"reorder"`
	Seed          uint64  `mapstructure:"seed"`
	QueueSize     int     `mapstructure:"queue-size"`
	MaxPacketSize int     `mapstructure:"max-packet-size"`
}

func DefaultConfig() Config {
	return Config{
		QueueSize:     1024,
		MaxPacketSize: 64 << 10,
	}
}

func (cfg Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddFloat64("loss", cfg.Loss)
	encoder.AddFloat64("reorder", cfg.Reorder)
	encoder.AddUint64("seed", cfg.Seed)
	encoder.AddInt("queue size", cfg.QueueSize)
	encoder.AddInt("max packet size", cfg.MaxPacketSize)
	return nil
}

type Opt func(*Network)

func WithLogger(logger *zap.Logger) Opt {
	return func(n *Network) {
		n.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(n *Network) {
		n.cfg = cfg
	}
}

// Network bridges the hosts created with Join.
type Network struct {
	logger  *zap.Logger
	cfg     Config
	tracker p2p.Tracker

	mu    sync.Mutex
	rng   *rand.Rand
	next  types.PeerID
	hosts map[types.PeerID]*Host
}

func New(opts ...Opt) *Network {
	n := &Network{
		logger:  zap.NewNop(),
		cfg:     DefaultConfig(),
		tracker: p2p.NewTracker("loopback"),
		next:    types.ServerPeer,
		hosts:   map[types.PeerID]*Host{},
	}
	for _, opt := range opts {
		opt(n)
	}
	src := mt19937.New()
	src.Seed(int64(n.cfg.Seed))
	n.rng = rand.New(src)
	return n
}

// Join creates a host with the next free peer id. It is not linked to anyone.
func (n *Network) Join() *Host {
	n.mu.Lock()
	defer n.mu.Unlock()
	h := &Host{
		net:     n,
		id:      n.next,
		links:   map[types.PeerID]*link{},
		packets: make(chan p2p.Packet, n.cfg.QueueSize),
		events:  make(chan p2p.Event, n.cfg.QueueSize),
	}
	n.hosts[h.id] = h
	n.next++
	return h
}

func (n *Network) host(peer types.PeerID) (*Host, error) {
	h, ok := n.hosts[peer]
	if !ok || h.closed {
		return nil, fmt.Errorf("%w: %v", p2p.ErrClosed, peer)
	}
	return h, nil
}

// Connect links two hosts and notifies both of them.
func (n *Network) Connect(a, b types.PeerID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a == b {
		return fmt.Errorf("connect %v to itself", a)
	}
	ha, err := n.host(a)
	if err != nil {
		return err
	}
	hb, err := n.host(b)
	if err != nil {
		return err
	}
	if _, ok := ha.links[b]; ok {
		return nil
	}
	ha.links[b] = &link{}
	hb.links[a] = &link{}
	n.tracker.Connected()
	n.logger.Debug("linked", zap.Stringer("a", a), zap.Stringer("b", b))
	return errors.Join(
		ha.notify(p2p.Event{Peer: b, Connected: true}),
		hb.notify(p2p.Event{Peer: a, Connected: true}),
	)
}

// Disconnect removes the link between two hosts. Held packets are lost.
func (n *Network) Disconnect(a, b types.PeerID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unlink(n.hosts[a], n.hosts[b])
}

func (n *Network) unlink(ha, hb *Host) error {
	if ha == nil || hb == nil {
		return p2p.ErrNotConnected
	}
	if _, ok := ha.links[hb.id]; !ok {
		return fmt.Errorf("%w: %v and %v", p2p.ErrNotConnected, ha.id, hb.id)
	}
	delete(ha.links, hb.id)
	delete(hb.links, ha.id)
	n.tracker.Disconnected()
	n.logger.Debug("unlinked", zap.Stringer("a", ha.id), zap.Stringer("b", hb.id))
	return errors.Join(
		ha.notify(p2p.Event{Peer: hb.id}),
		hb.notify(p2p.Event{Peer: ha.id}),
	)
}

// Flush delivers unreliable packets that are held back for reordering.
func (n *Network) Flush() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, h := range n.hosts {
		for peer, l := range h.links {
			if l.held != nil {
				_ = n.push(n.hosts[peer], *l.held)
				l.held = nil
			}
		}
	}
}

func (n *Network) deliver(from *Host, to types.PeerID, data []byte, reliable bool) error {
	l, ok := from.links[to]
	if !ok {
		return fmt.Errorf("%w: %v", p2p.ErrNotConnected, to)
	}
	dst := n.hosts[to]
	pkt := p2p.Packet{From: from.id, Data: slices.Clone(data), Reliable: reliable}
	n.tracker.Sent(reliable, len(data))
	if reliable {
		if err := n.push(dst, pkt); err != nil {
			return fmt.Errorf("reliable to %v: %w", to, err)
		}
		return nil
	}
	if n.rng.Float64() < n.cfg.Loss {
		n.tracker.Dropped("loss")
		return nil
	}
	if l.held == nil && n.rng.Float64() < n.cfg.Reorder {
		l.held = &pkt
		return nil
	}
	// unreliable packets are dropped when the queue is full
	_ = n.push(dst, pkt)
	if l.held != nil {
		_ = n.push(dst, *l.held)
		l.held = nil
	}
	return nil
}

func (n *Network) push(dst *Host, pkt p2p.Packet) error {
	select {
	case dst.packets <- pkt:
		n.tracker.Received(pkt.Reliable, len(pkt.Data))
		return nil
	default:
		n.tracker.Dropped("queue")
		n.logger.Warn("inbound queue full",
			log.Peer(dst.id),
			zap.Stringer("from", pkt.From),
			zap.String("channel", p2p.Channel(pkt.Reliable)),
		)
		return p2p.ErrQueueFull
	}
}

type link struct {
	held *p2p.Packet
}

// Host implements p2p.Host. Links are guarded by the network mutex.
type Host struct {
	net     *Network
	id      types.PeerID
	links   map[types.PeerID]*link
	packets chan p2p.Packet
	events  chan p2p.Event
	closed  bool
}

func (h *Host) LocalPeer() types.PeerID {
	return h.id
}

func (h *Host) Connected() bool {
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	return !h.closed
}

// Peers returns the linked peers in ascending order.
func (h *Host) Peers() []types.PeerID {
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	return h.peers()
}

func (h *Host) peers() []types.PeerID {
	peers := make([]types.PeerID, 0, len(h.links))
	for peer := range h.links {
		peers = append(peers, peer)
	}
	slices.Sort(peers)
	return peers
}

func (h *Host) Send(peer types.PeerID, data []byte, reliable bool) error {
	n := h.net
	n.mu.Lock()
	defer n.mu.Unlock()
	if h.closed {
		return p2p.ErrClosed
	}
	if len(data) > n.cfg.MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", p2p.ErrTooLarge, len(data))
	}
	if peer != types.BroadcastPeer {
		return n.deliver(h, peer, data, reliable)
	}
	var errs []error
	for _, peer := range h.peers() {
		errs = append(errs, n.deliver(h, peer, data, reliable))
	}
	return errors.Join(errs...)
}

func (h *Host) Packets() <-chan p2p.Packet {
	return h.packets
}

func (h *Host) Events() <-chan p2p.Event {
	return h.events
}

func (h *Host) notify(ev p2p.Event) error {
	select {
	case h.events <- ev:
		return nil
	default:
		return fmt.Errorf("event for %v: %w", h.id, p2p.ErrQueueFull)
	}
}

// Close unlinks the host from its peers and closes its channels.
func (h *Host) Close() error {
	n := h.net
	n.mu.Lock()
	defer n.mu.Unlock()
	if h.closed {
		return nil
	}
	var errs []error
	for _, peer := range h.peers() {
		errs = append(errs, n.unlink(h, n.hosts[peer]))
	}
	h.closed = true
	close(h.packets)
	close(h.events)
	return errors.Join(errs...)
}
