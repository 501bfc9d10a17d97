package scene

import (
	"strconv"
	"time"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication"
)

// Synchronizer replicates properties of its root, which is the parent of the
// synchronizer node. Replication runs while the synchronizer is in the tree.
type Synchronizer struct {
	tree      *Tree
	id        types.ObjectID
	root      types.ObjectID
	authority types.PeerID
	config    *replication.ReplicationConfig
	interval  time.Duration

	public bool
	peers  map[types.PeerID]bool
	filter func(types.PeerID) bool

	subscribers map[int]func(types.PeerID)
	next        int
	started     bool
}

type SyncOpt func(*Synchronizer)

// WithInterval limits how often state is sent. Zero sends on every tick.
func WithInterval(interval time.Duration) SyncOpt {
	return func(s *Synchronizer) {
		s.interval = interval
	}
}

// WithPublicVisibility sets the initial public visibility, true by default.
func WithPublicVisibility(public bool) SyncOpt {
	return func(s *Synchronizer) {
		s.public = public
	}
}

// NewSynchronizer attaches a synchronizer node to root.
func (t *Tree) NewSynchronizer(root types.ObjectID, authority types.PeerID, config *replication.ReplicationConfig, opts ...SyncOpt) (*Synchronizer, error) {
	n := t.newNode("MultiplayerSynchronizer")
	s := &Synchronizer{
		tree:        t,
		id:          n.id,
		root:        root,
		authority:   authority,
		config:      config,
		public:      true,
		peers:       map[types.PeerID]bool{},
		subscribers: map[int]func(types.PeerID){},
	}
	for _, opt := range opts {
		opt(s)
	}
	n.sync = s
	for i := 2; t.HasChild(root, n.name); i++ {
		n.name = "MultiplayerSynchronizer" + strconv.Itoa(i)
	}
	if err := t.AddChild(root, n.id); err != nil {
		if _, attached := t.Parent(n.id); attached {
			return s, err
		}
		n.sync = nil
		t.Free(n.id)
		return nil, err
	}
	return s, nil
}

func (s *Synchronizer) start() error {
	if s.started || s.tree.hooks == nil {
		return nil
	}
	s.started = true
	return s.tree.hooks.OnReplicationStart(s.root, replication.SynchronizerConfig{Synchronizer: s})
}

func (s *Synchronizer) stop() error {
	if !s.started || s.tree.hooks == nil {
		return nil
	}
	s.started = false
	return s.tree.hooks.OnReplicationStop(s.root, replication.SynchronizerConfig{Synchronizer: s})
}

func (s *Synchronizer) ID() types.ObjectID {
	return s.id
}

func (s *Synchronizer) Root() types.ObjectID {
	return s.root
}

func (s *Synchronizer) Authority() types.PeerID {
	return s.authority
}

// SetAuthority changes the authority. Takes effect for the next replication start.
func (s *Synchronizer) SetAuthority(peer types.PeerID) {
	s.authority = peer
}

func (s *Synchronizer) ReplicationConfig() *replication.ReplicationConfig {
	return s.config
}

func (s *Synchronizer) ReplicationInterval() time.Duration {
	return s.interval
}

// VisibleTo requires the filter, if any, to accept the peer. Then the
// synchronizer is visible if it is public or the peer was allowed explicitly.
// Peer 0 asks about public visibility.
func (s *Synchronizer) VisibleTo(peer types.PeerID) bool {
	if s.filter != nil && !s.filter(peer) {
		return false
	}
	return s.public || (peer != types.BroadcastPeer && s.peers[peer])
}

func (s *Synchronizer) SetPublicVisibility(public bool) {
	s.public = public
	s.notify(types.BroadcastPeer)
}

func (s *Synchronizer) SetVisibilityFor(peer types.PeerID, visible bool) {
	if peer == types.BroadcastPeer {
		s.SetPublicVisibility(visible)
		return
	}
	if visible {
		s.peers[peer] = true
	} else {
		delete(s.peers, peer)
	}
	s.notify(peer)
}

// SetVisibilityFilter installs a filter every peer must pass. Nil removes it.
func (s *Synchronizer) SetVisibilityFilter(filter func(types.PeerID) bool) {
	s.filter = filter
	s.notify(types.BroadcastPeer)
}

// UpdateVisibility re-evaluates visibility, for example after the filter
// inputs changed.
func (s *Synchronizer) UpdateVisibility(peer types.PeerID) {
	s.notify(peer)
}

func (s *Synchronizer) SubscribeVisibility(fn func(types.PeerID)) func() {
	id := s.next
	s.next++
	s.subscribers[id] = fn
	return func() {
		delete(s.subscribers, id)
	}
}

func (s *Synchronizer) notify(peer types.PeerID) {
	for _, fn := range s.subscribers {
		fn(peer)
	}
}
