package replication

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication/wire"
)

type fakeObject struct {
	name      string
	parent    types.ObjectID
	children  []types.ObjectID
	props     map[string]codec.Value
	syncs     []*fakeSync
	destroyed []func()
}

// fakeScene is a minimal scene that drives the replicator hooks the way a
// real scene graph does.
type fakeScene struct {
	t        testing.TB
	// failAdd makes AddChild fail before the child is attached.
	failAdd  error
	r        *Replicator
	last     types.ObjectID
	objects  map[types.ObjectID]*fakeObject
	spawners map[types.ObjectID]*fakeSpawner
}

func newFakeScene(t testing.TB) *fakeScene {
	return &fakeScene{
		t:        t,
		last:     100,
		objects:  map[types.ObjectID]*fakeObject{},
		spawners: map[types.ObjectID]*fakeSpawner{},
	}
}

func (s *fakeScene) newObject(name string) types.ObjectID {
	s.last++
	s.objects[s.last] = &fakeObject{name: name, props: map[string]codec.Value{}}
	return s.last
}

func (s *fakeScene) object(id types.ObjectID) *fakeObject {
	obj, ok := s.objects[id]
	require.True(s.t, ok, "object %v does not exist", id)
	return obj
}

func (s *fakeScene) Exists(obj types.ObjectID) bool {
	_, ok := s.objects[obj]
	return ok
}

func (s *fakeScene) Name(obj types.ObjectID) string {
	return s.object(obj).name
}

func (s *fakeScene) SetName(obj types.ObjectID, name string) {
	s.object(obj).name = name
}

func (s *fakeScene) HasChild(parent types.ObjectID, name string) bool {
	for _, child := range s.object(parent).children {
		if s.objects[child].name == name {
			return true
		}
	}
	return false
}

func (s *fakeScene) AddChild(parent, child types.ObjectID) error {
	if s.failAdd != nil {
		return s.failAdd
	}
	p := s.object(parent)
	c := s.object(child)
	c.parent = parent
	p.children = append(p.children, child)
	for _, sync := range c.syncs {
		if err := s.r.OnReplicationStart(child, SynchronizerConfig{sync}); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeScene) Parent(obj types.ObjectID) (types.ObjectID, bool) {
	o, ok := s.objects[obj]
	if !ok || o.parent == 0 {
		return 0, false
	}
	return o.parent, true
}

func (s *fakeScene) RemoveFromParent(obj types.ObjectID) {
	o := s.object(obj)
	if o.parent == 0 {
		return
	}
	for _, sync := range o.syncs {
		require.NoError(s.t, s.r.OnReplicationStop(obj, SynchronizerConfig{sync}))
	}
	p := s.object(o.parent)
	p.children = slices.DeleteFunc(p.children, func(id types.ObjectID) bool { return id == obj })
	o.parent = 0
}

func (s *fakeScene) QueueFree(obj types.ObjectID) {
	o, ok := s.objects[obj]
	if !ok {
		return
	}
	s.RemoveFromParent(obj)
	delete(s.objects, obj)
	for _, fn := range o.destroyed {
		fn()
	}
}

func (s *fakeScene) OnDestroyed(obj types.ObjectID, fn func()) {
	o := s.object(obj)
	o.destroyed = append(o.destroyed, fn)
}

func (s *fakeScene) Spawner(obj types.ObjectID) (Spawner, bool) {
	sp, ok := s.spawners[obj]
	return sp, ok
}

func (s *fakeScene) GetState(obj types.ObjectID, paths []string) ([]codec.Value, error) {
	o, ok := s.objects[obj]
	if !ok {
		return nil, fmt.Errorf("object %v does not exist", obj)
	}
	values := make([]codec.Value, 0, len(paths))
	for _, path := range paths {
		v, ok := o.props[path]
		if !ok {
			return nil, fmt.Errorf("property %q not found", path)
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *fakeScene) SetState(obj types.ObjectID, paths []string, values []codec.Value) error {
	o, ok := s.objects[obj]
	if !ok {
		return fmt.Errorf("object %v does not exist", obj)
	}
	for i, path := range paths {
		o.props[path] = values[i]
	}
	return nil
}

type fakeSpawner struct {
	id        types.ObjectID
	scene     *fakeScene
	authority types.PeerID
	parent    types.ObjectID
	// scenes builds objects by scene index.
	scenes    []func() types.ObjectID
	indexes   map[types.ObjectID]uint8
	spawned   []types.ObjectID
	despawned []types.ObjectID
}

func (s *fakeScene) newSpawner(authority types.PeerID, parent types.ObjectID, scenes ...func() types.ObjectID) *fakeSpawner {
	sp := &fakeSpawner{
		id:        s.newObject("Spawner"),
		scene:     s,
		authority: authority,
		parent:    parent,
		scenes:    scenes,
		indexes:   map[types.ObjectID]uint8{},
	}
	s.spawners[sp.id] = sp
	return sp
}

func (sp *fakeSpawner) ID() types.ObjectID { return sp.id }
func (sp *fakeSpawner) Authority() types.PeerID { return sp.authority }
func (sp *fakeSpawner) SpawnParent() (types.ObjectID, bool) { return sp.parent, sp.parent != 0 }
func (sp *fakeSpawner) SpawnArgument(obj types.ObjectID) codec.Value { return codec.Nil() }
func (sp *fakeSpawner) NotifySpawned(obj types.ObjectID) { sp.spawned = append(sp.spawned, obj) }
func (sp *fakeSpawner) NotifyDespawned(obj types.ObjectID) { sp.despawned = append(sp.despawned, obj) }

func (sp *fakeSpawner) SceneIndex(obj types.ObjectID) uint8 {
	idx, ok := sp.indexes[obj]
	if !ok {
		return wire.CustomScene
	}
	return idx
}

func (sp *fakeSpawner) InstantiateScene(sceneID uint8) (types.ObjectID, bool) {
	if int(sceneID) >= len(sp.scenes) {
		return 0, false
	}
	obj := sp.scenes[sceneID]()
	sp.indexes[obj] = sceneID
	return obj, true
}

func (sp *fakeSpawner) InstantiateCustom(codec.Value) (types.ObjectID, bool) {
	return 0, false
}

// spawn instantiates a scene locally, adds it to the tree and reports it to
// the replicator, like a spawner does on its authority.
func (sp *fakeSpawner) spawn(t testing.TB, sceneID uint8, name string) types.ObjectID {
	obj, ok := sp.InstantiateScene(sceneID)
	require.True(t, ok)
	sp.scene.SetName(obj, name)
	require.NoError(t, sp.scene.AddChild(sp.parent, obj))
	require.NoError(t, sp.scene.r.OnSpawn(obj, SpawnerConfig{sp}))
	return obj
}

type fakeSync struct {
	id          types.ObjectID
	root        types.ObjectID
	authority   types.PeerID
	cfg         *ReplicationConfig
	interval    time.Duration
	public      bool
	visibility  map[types.PeerID]bool
	subscribers map[int]func(types.PeerID)
	next        int
}

// newSync attaches a synchronizer to root. It starts replication when root
// enters the tree.
func (s *fakeScene) newSync(root types.ObjectID, authority types.PeerID, cfg *ReplicationConfig) *fakeSync {
	sync := &fakeSync{
		id:          s.newObject("MultiplayerSynchronizer"),
		root:        root,
		authority:   authority,
		cfg:         cfg,
		public:      true,
		visibility:  map[types.PeerID]bool{},
		subscribers: map[int]func(types.PeerID){},
	}
	o := s.object(root)
	o.syncs = append(o.syncs, sync)
	return sync
}

func (sync *fakeSync) ID() types.ObjectID { return sync.id }
func (sync *fakeSync) Root() types.ObjectID { return sync.root }
func (sync *fakeSync) Authority() types.PeerID { return sync.authority }
func (sync *fakeSync) ReplicationConfig() *ReplicationConfig { return sync.cfg }
func (sync *fakeSync) ReplicationInterval() time.Duration { return sync.interval }

func (sync *fakeSync) VisibleTo(peer types.PeerID) bool {
	if peer == types.BroadcastPeer {
		return sync.public
	}
	return sync.public || sync.visibility[peer]
}

func (sync *fakeSync) SubscribeVisibility(fn func(types.PeerID)) func() {
	id := sync.next
	sync.next++
	sync.subscribers[id] = fn
	return func() { delete(sync.subscribers, id) }
}

func (sync *fakeSync) setVisibility(peer types.PeerID, visible bool) {
	if peer == types.BroadcastPeer {
		sync.public = visible
	} else {
		sync.visibility[peer] = visible
	}
	for _, fn := range sync.subscribers {
		fn(peer)
	}
}

type sentPacket struct {
	peer     types.PeerID
	data     []byte
	reliable bool
}

type tester struct {
	*Replicator
	t         testing.TB
	clock     clockwork.FakeClock
	transport *MockTransport
	cache     *MockPathCache
	scene     *fakeScene
	root      types.ObjectID
	local     types.PeerID
	sent      []sentPacket
	// unconfirmed objects are reported as not yet known by the peer.
	unconfirmed map[types.ObjectID]bool
	// remote path ids resolvable by CachedObject.
	remote map[uint32]types.ObjectID
	// failSend makes Send to a peer fail with the error.
	failSend map[types.PeerID]error
}

func newTester(t testing.TB, local types.PeerID, opts ...Opt) *tester {
	ctrl := gomock.NewController(t)
	tr := &tester{
		t:           t,
		clock:       clockwork.NewFakeClock(),
		transport:   NewMockTransport(ctrl),
		cache:       NewMockPathCache(ctrl),
		scene:       newFakeScene(t),
		local:       local,
		unconfirmed: map[types.ObjectID]bool{},
		remote:      map[uint32]types.ObjectID{},
		failSend:    map[types.PeerID]error{},
	}
	tr.root = tr.scene.newObject("root")
	tr.transport.EXPECT().LocalPeer().Return(local).AnyTimes()
	tr.transport.EXPECT().Connected().Return(true).AnyTimes()
	tr.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(peer types.PeerID, data []byte, reliable bool) error {
			if err := tr.failSend[peer]; err != nil {
				return err
			}
			tr.sent = append(tr.sent, sentPacket{peer: peer, data: slices.Clone(data), reliable: reliable})
			return nil
		}).AnyTimes()
	tr.cache.EXPECT().MakeObjectCache(gomock.Any()).DoAndReturn(
		func(obj types.ObjectID) (uint32, error) {
			return uint32(obj), nil
		}).AnyTimes()
	tr.cache.EXPECT().SendObjectCache(gomock.Any(), gomock.Any()).DoAndReturn(
		func(obj types.ObjectID, _ types.PeerID) (uint32, bool, error) {
			return uint32(obj), !tr.unconfirmed[obj], nil
		}).AnyTimes()
	tr.cache.EXPECT().CachedObject(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ types.PeerID, id uint32) (types.ObjectID, bool) {
			obj, ok := tr.remote[id]
			return obj, ok
		}).AnyTimes()

	cfg := DefaultConfig()
	cfg.StrictBugs = true
	opts = append([]Opt{
		WithLogger(zaptest.NewLogger(t)),
		WithConfig(cfg),
		WithWallclock(tr.clock),
		WithCodec(codec.New(codec.WithConfig(codec.Config{MaxValueSize: 1 << 20}))),
	}, opts...)
	tr.Replicator = New(tr.transport, tr.cache, tr.scene, tr.scene, opts...)
	tr.scene.r = tr.Replicator
	return tr
}

func (tr *tester) connect(peers ...types.PeerID) {
	for _, peer := range peers {
		require.NoError(tr.t, tr.OnPeerChange(peer, true))
	}
}

// take returns and forgets the packets sent so far.
func (tr *tester) take() []sentPacket {
	sent := tr.sent
	tr.sent = nil
	return sent
}

func (tr *tester) takeCommand(cmd byte) []sentPacket {
	var rst []sentPacket
	for _, p := range tr.take() {
		if p.data[0] == cmd {
			rst = append(rst, p)
		}
	}
	return rst
}

func peersOf(packets []sentPacket) []types.PeerID {
	var peers []types.PeerID
	for _, p := range packets {
		peers = append(peers, p.peer)
	}
	slices.Sort(peers)
	return peers
}

func syncEntries(t testing.TB, data []byte) (uint16, []wire.SyncEntry) {
	reader, err := wire.NewSyncReader(data)
	require.NoError(t, err)
	var entries []wire.SyncEntry
	for {
		entry, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			return reader.Counter(), entries
		}
		entries = append(entries, entry)
	}
}

func mustEncode(t testing.TB, c ValueCodec, values ...codec.Value) []byte {
	buf, err := c.EncodeValues(values)
	require.NoError(t, err)
	return buf
}
