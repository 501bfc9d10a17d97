// Package pathcache lets peers refer to scene objects by small numeric ids
// instead of full object paths.
//
// The owner of an object announces id -> path once per peer with
// SIMPLIFY_PATH, the peer answers with CONFIRM_PATH. Ids are only used in
// unreliable traffic after the confirmation arrived.
package pathcache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/replication"
	"github.com/spacemeshos/go-replica/replication/wire"
)

// Transport sends path cache packets. Send must not retain data.
type Transport interface {
	Send(peer types.PeerID, data []byte, reliable bool) error
}

// Resolver maps objects to absolute paths and back.
type Resolver interface {
	Path(obj types.ObjectID) (string, bool)
	Lookup(path string) (types.ObjectID, bool)
	OnDestroyed(obj types.ObjectID, fn func())
}

type Config struct {
	// ResolveCacheSize bounds the number of remote paths kept resolved to local objects.
	ResolveCacheSize int `mapstructure:"resolve-cache-size"`
}

func DefaultConfig() Config {
	return Config{ResolveCacheSize: 4096}
}

func (cfg Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddInt("resolve cache size", cfg.ResolveCacheSize)
	return nil
}

type Opt func(*Cache)

func WithLogger(logger *zap.Logger) Opt {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(c *Cache) {
		c.cfg = cfg
	}
}

// entry is a local object announced to peers.
type entry struct {
	id   uint32
	path string
	// peers that were sent the entry, with their confirmation.
	peers map[types.PeerID]bool
}

// Cache implements replication.PathCache. It is not safe for concurrent use.
type Cache struct {
	logger    *zap.Logger
	cfg       Config
	transport Transport
	resolver  Resolver

	lastID  uint32
	local   map[types.ObjectID]*entry
	byID    map[uint32]types.ObjectID
	remote  map[types.PeerID]map[uint32]string
	resolve *simplelru.LRU[string, types.ObjectID]
	packet  []byte
}

// New creates a path cache.
func New(transport Transport, resolver Resolver, opts ...Opt) *Cache {
	c := &Cache{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		transport: transport,
		resolver:  resolver,
		local:     map[types.ObjectID]*entry{},
		byID:      map[uint32]types.ObjectID{},
		remote:    map[types.PeerID]map[uint32]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	resolve, err := simplelru.NewLRU[string, types.ObjectID](c.cfg.ResolveCacheSize, nil)
	if err != nil {
		panic("BUG: failed to create resolve cache: " + err.Error())
	}
	c.resolve = resolve
	return c
}

// MakeObjectCache returns the id of obj, allocating it on first use.
// Ids are sequential from 1 and stable while the object exists.
func (c *Cache) MakeObjectCache(obj types.ObjectID) (uint32, error) {
	e, err := c.entry(obj)
	if err != nil {
		return 0, err
	}
	return e.id, nil
}

func (c *Cache) entry(obj types.ObjectID) (*entry, error) {
	if e, ok := c.local[obj]; ok {
		return e, nil
	}
	path, ok := c.resolver.Path(obj)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not in the scene", replication.ErrDoesNotExist, obj)
	}
	c.lastID++
	e := &entry{id: c.lastID, path: path, peers: map[types.PeerID]bool{}}
	c.local[obj] = e
	c.byID[e.id] = obj
	c.resolver.OnDestroyed(obj, func() { c.forget(obj, e.id) })
	return e, nil
}

func (c *Cache) forget(obj types.ObjectID, id uint32) {
	if e, ok := c.local[obj]; ok && e.id == id {
		delete(c.local, obj)
		delete(c.byID, id)
	}
}

// SendObjectCache announces obj to peer unless it was announced already.
// It returns the id of obj and whether peer confirmed it.
func (c *Cache) SendObjectCache(obj types.ObjectID, peer types.PeerID) (uint32, bool, error) {
	e, err := c.entry(obj)
	if err != nil {
		return 0, false, err
	}
	if confirmed, sent := e.peers[peer]; sent {
		return e.id, confirmed, nil
	}
	c.packet = wire.AppendSimplifyPath(c.packet[:0], e.id, e.path)
	if err := c.transport.Send(peer, c.packet, true); err != nil {
		return e.id, false, fmt.Errorf("send simplify path to %v: %w", peer, err)
	}
	e.peers[peer] = false
	pathsSent.Inc()
	c.logger.Debug("sent simplify path",
		log.Peer(peer), log.Object(obj), zap.Uint32("id", e.id), zap.String("path", e.path))
	return e.id, false, nil
}

// CachedObject resolves an id announced by peer to a local object.
func (c *Cache) CachedObject(peer types.PeerID, id uint32) (types.ObjectID, bool) {
	path, ok := c.remote[peer][id]
	if !ok {
		return 0, false
	}
	return c.lookup(path)
}

func (c *Cache) lookup(path string) (types.ObjectID, bool) {
	if obj, ok := c.resolve.Get(path); ok {
		// the object may have been freed or renamed since.
		if current, exists := c.resolver.Path(obj); exists && current == path {
			resolveHits.Inc()
			return obj, true
		}
		c.resolve.Remove(path)
	}
	resolveMisses.Inc()
	obj, ok := c.resolver.Lookup(path)
	if !ok {
		return 0, false
	}
	c.resolve.Add(path, obj)
	return obj, true
}

// OnSimplifyPathReceive records a path announced by peer and confirms it.
// Paths that do not resolve locally are kept and confirmed as invalid.
func (c *Cache) OnSimplifyPathReceive(from types.PeerID, buf []byte) error {
	id, path, err := wire.DecodeSimplifyPath(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", replication.ErrInvalidData, err)
	}
	paths, ok := c.remote[from]
	if !ok {
		paths = map[uint32]string{}
		c.remote[from] = paths
	}
	paths[id] = path
	_, valid := c.lookup(path)
	if !valid {
		c.logger.Debug("announced path does not resolve",
			log.Peer(from), zap.Uint32("id", id), zap.String("path", path))
	}
	c.packet = wire.AppendConfirmPath(c.packet[:0], valid, id)
	if err := c.transport.Send(from, c.packet, true); err != nil {
		return fmt.Errorf("send confirm path to %v: %w", from, err)
	}
	return nil
}

// OnConfirmPathReceive marks an announced id as confirmed by peer.
func (c *Cache) OnConfirmPathReceive(from types.PeerID, buf []byte) error {
	valid, id, err := wire.DecodeConfirmPath(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", replication.ErrInvalidData, err)
	}
	obj, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: confirmation for unknown path id %d", replication.ErrInvalidData, id)
	}
	e := c.local[obj]
	if _, sent := e.peers[from]; !sent {
		return fmt.Errorf("%w: path id %d was not sent to %v", replication.ErrInvalidData, id, from)
	}
	e.peers[from] = valid
	confirmations.WithLabelValues(validLabel(valid)).Inc()
	if !valid {
		c.logger.Warn("peer failed to resolve path",
			log.Peer(from), log.Object(obj), zap.String("path", e.path))
	}
	return nil
}

// HandlePacket dispatches SIMPLIFY_PATH and CONFIRM_PATH packets.
func (c *Cache) HandlePacket(from types.PeerID, buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty packet", replication.ErrInvalidData)
	}
	switch buf[0] {
	case wire.CmdSimplifyPath:
		return c.OnSimplifyPathReceive(from, buf)
	case wire.CmdConfirmPath:
		return c.OnConfirmPathReceive(from, buf)
	}
	return fmt.Errorf("%w: %w %d", replication.ErrInvalidData, wire.ErrCommand, buf[0])
}

// OnPeerChange drops everything known about a disconnected peer.
func (c *Cache) OnPeerChange(peer types.PeerID, connected bool) {
	if connected {
		return
	}
	delete(c.remote, peer)
	for _, e := range c.local {
		delete(e.peers, peer)
	}
}

// Reset forgets every announcement. Ids restart from 1.
func (c *Cache) Reset() {
	clear(c.local)
	clear(c.byID)
	clear(c.remote)
	c.resolve.Purge()
	c.lastID = 0
}
