// Package replication keeps scene objects consistent across the peers of a
// multiplayer session: it spawns and despawns objects on remote peers and
// streams their state in MTU bounded SYNC packets.
//
// A Replicator is not safe for concurrent use. Every hook and packet handler
// must be called from the goroutine that owns the scene.
package replication

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/replication/wire"
)

// trackedNode is the replication state of a single object.
type trackedNode struct {
	id         types.ObjectID
	netID      types.NetID
	remotePeer types.PeerID
	spawner    Spawner
	// synchronizers in the order their replication started.
	synchronizers []types.ObjectID
}

// peerInfo is the per peer session state.
type peerInfo struct {
	spawnNodes   map[types.ObjectID]struct{}
	syncNodes    map[types.ObjectID]struct{}
	recvNodes    map[types.NetID]types.ObjectID
	recvSyncIDs  map[types.NetID]types.ObjectID
	lastSentSync uint16
}

func newPeerInfo() *peerInfo {
	return &peerInfo{
		spawnNodes:  map[types.ObjectID]struct{}{},
		syncNodes:   map[types.ObjectID]struct{}{},
		recvNodes:   map[types.NetID]types.ObjectID{},
		recvSyncIDs: map[types.NetID]types.ObjectID{},
	}
}

// syncState is kept for every synchronizer in replication.
type syncState struct {
	sync        Synchronizer
	netID       types.NetID
	lastInbound uint16
	hasInbound  bool
	lastSent    time.Time
	cancel      func()
}

// spawnContext stages the payload of an inbound SPAWN until the synchronizers
// of the new object start replication.
type spawnContext struct {
	object  types.ObjectID
	remote  types.PeerID
	state   []byte
	syncIDs []types.NetID
}

type Opt func(*Replicator)

func WithLogger(logger *zap.Logger) Opt {
	return func(r *Replicator) {
		r.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(r *Replicator) {
		r.cfg = cfg
	}
}

// WithWallclock sets the clock used for sync intervals.
func WithWallclock(clock clockwork.Clock) Opt {
	return func(r *Replicator) {
		r.clock = clock
	}
}

// WithCodec overrides the value codec, by default codec.New().
func WithCodec(c ValueCodec) Opt {
	return func(r *Replicator) {
		r.codec = c
	}
}

// Replicator implements spawn, despawn and state synchronization for one
// local peer of a session.
type Replicator struct {
	logger *zap.Logger
	cfg    Config
	clock  clockwork.Clock
	codec  ValueCodec

	transport Transport
	cache     PathCache
	scene     Lifecycle
	props     Properties

	tracked map[types.ObjectID]*trackedNode
	peers   map[types.PeerID]*peerInfo
	// spawned objects managed by a local spawner.
	spawned map[types.ObjectID]struct{}
	syncs   map[types.ObjectID]*syncState
	pending *spawnContext

	lastNetID uint32
	packet    []byte
}

// New creates a Replicator. Collaborators are required.
func New(transport Transport, cache PathCache, scene Lifecycle, props Properties, opts ...Opt) *Replicator {
	r := &Replicator{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		transport: transport,
		cache:     cache,
		scene:     scene,
		props:     props,
		tracked:   map[types.ObjectID]*trackedNode{},
		peers:     map[types.PeerID]*peerInfo{},
		spawned:   map[types.ObjectID]struct{}{},
		syncs:     map[types.ObjectID]*syncState{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.codec == nil {
		r.codec = codec.New()
	}
	r.packet = make([]byte, 0, r.cfg.MTU)
	return r
}

// OnPeerChange opens or closes the session of a peer.
// A new peer is evaluated against every locally spawned object and every
// local synchronizer. A leaving peer takes the objects it spawned with it.
func (r *Replicator) OnPeerChange(peer types.PeerID, connected bool) error {
	if connected {
		if _, exists := r.peers[peer]; exists {
			return fmt.Errorf("%w: peer %v already connected", ErrAlreadyInUse, peer)
		}
		r.peers[peer] = newPeerInfo()
		sessionPeers.Inc()
		r.logger.Debug("peer connected", log.Peer(peer))
		for obj := range r.spawned {
			tn := r.tracked[obj]
			if tn == nil || !r.isSpawnAuthority(tn) {
				continue
			}
			if err := r.updateSpawnVisibility(peer, tn); err != nil {
				r.logger.Warn("failed to update spawn visibility",
					log.Peer(peer), log.Object(obj), zap.Error(err))
			}
		}
		for _, st := range r.syncs {
			if err := r.updateSyncVisibility(peer, st); err != nil {
				r.logger.Warn("failed to update sync visibility",
					log.Peer(peer), log.Synchronizer(st.sync.ID()), zap.Error(err))
			}
		}
		return nil
	}
	info, exists := r.peers[peer]
	if !exists {
		return fmt.Errorf("%w: peer %v is not connected", ErrInvalidParameter, peer)
	}
	r.freeRemotes(info)
	delete(r.peers, peer)
	sessionPeers.Dec()
	r.logger.Debug("peer disconnected", log.Peer(peer))
	return nil
}

// OnReset drops every session: objects spawned by remotes are freed, and
// net ids are cleared so that the next session allocates them from 1.
func (r *Replicator) OnReset() {
	for _, info := range r.peers {
		r.freeRemotes(info)
	}
	sessionPeers.Sub(float64(len(r.peers)))
	clear(r.peers)
	for _, tn := range r.tracked {
		tn.netID = 0
		tn.remotePeer = 0
	}
	for _, st := range r.syncs {
		st.netID = 0
		st.lastInbound = 0
		st.hasInbound = false
		st.lastSent = time.Time{}
	}
	r.lastNetID = 0
	r.pending = nil
	r.logger.Debug("replication reset")
}

// HandlePacket dispatches an inbound packet by its command byte.
func (r *Replicator) HandlePacket(from types.PeerID, buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty packet", ErrInvalidData)
	}
	cmd := buf[0]
	packetsReceived.WithLabelValues(commandName(cmd)).Inc()
	var err error
	switch cmd {
	case wire.CmdSpawn:
		err = r.OnSpawnReceive(from, buf)
	case wire.CmdDespawn:
		err = r.OnDespawnReceive(from, buf)
	case wire.CmdSync:
		err = r.OnSyncReceive(from, buf)
	default:
		err = fmt.Errorf("%w: %w %d", ErrInvalidData, wire.ErrCommand, cmd)
	}
	if err != nil {
		packetsRejected.WithLabelValues(commandName(cmd)).Inc()
	}
	return err
}

// Tracked returns the net id of a tracked object.
func (r *Replicator) Tracked(obj types.ObjectID) (types.NetID, bool) {
	tn, ok := r.tracked[obj]
	if !ok {
		return 0, false
	}
	return tn.netID, true
}

func (r *Replicator) track(obj types.ObjectID) *trackedNode {
	if tn, ok := r.tracked[obj]; ok {
		return tn
	}
	tn := &trackedNode{id: obj}
	r.tracked[obj] = tn
	trackedObjects.Inc()
	r.scene.OnDestroyed(obj, func() { r.untrack(obj) })
	return tn
}

func (r *Replicator) untrack(obj types.ObjectID) {
	tn, ok := r.tracked[obj]
	if !ok {
		return
	}
	delete(r.tracked, obj)
	trackedObjects.Dec()
	if tn.remotePeer != 0 {
		if info := r.peers[tn.remotePeer]; info != nil && info.recvNodes[tn.netID] == obj {
			delete(info.recvNodes, tn.netID)
		}
	}
	for _, info := range r.peers {
		delete(info.spawnNodes, obj)
	}
	delete(r.spawned, obj)
}

// freeRemotes destroys every object spawned by the peer.
func (r *Replicator) freeRemotes(info *peerInfo) {
	for _, obj := range info.recvNodes {
		if r.scene.Exists(obj) {
			r.scene.RemoveFromParent(obj)
			r.scene.QueueFree(obj)
		}
		r.untrack(obj)
	}
	clear(info.recvNodes)
	clear(info.recvSyncIDs)
}

func (r *Replicator) isLocal(peer types.PeerID) bool {
	return peer == r.transport.LocalPeer()
}

func (r *Replicator) isSpawnAuthority(tn *trackedNode) bool {
	return tn.spawner != nil && r.transport.Connected() && r.isLocal(tn.spawner.Authority())
}

func (r *Replicator) allocNetID() types.NetID {
	r.lastNetID++
	return types.NetID(r.lastNetID)
}

func (r *Replicator) send(peer types.PeerID, data []byte, reliable bool) error {
	cmd := commandName(data[0])
	if err := r.transport.Send(peer, data, reliable); err != nil {
		return fmt.Errorf("send %s to %v: %w", cmd, peer, err)
	}
	packetsSent.WithLabelValues(cmd).Inc()
	bytesSent.WithLabelValues(cmd).Add(float64(len(data)))
	packetSize.WithLabelValues(cmd).Observe(float64(len(data)))
	return nil
}

// bug reports an internal inconsistency.
func (r *Replicator) bug(msg string, fields ...zap.Field) error {
	if r.cfg.StrictBugs {
		r.logger.Panic(msg, fields...)
	}
	r.logger.Error(msg, fields...)
	return fmt.Errorf("%w: %s", ErrBug, msg)
}

func removeID(ids []types.ObjectID, id types.ObjectID) []types.ObjectID {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
