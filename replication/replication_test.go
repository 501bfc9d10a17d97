package replication

import (
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication/wire"
)

func playerScene(tr *tester, authority types.PeerID, props map[string]codec.Value, cfg *ReplicationConfig) func() types.ObjectID {
	return func() types.ObjectID {
		obj := tr.scene.newObject("Player")
		for k, v := range props {
			tr.scene.object(obj).props[k] = v
		}
		tr.scene.newSync(obj, authority, cfg)
		return obj
	}
}

var playerConfig = &ReplicationConfig{
	SpawnProperties: []string{"position"},
	SyncProperties:  []string{"position"},
}

func TestSpawnAllocatesNetIDs(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root,
		playerScene(tr, types.ServerPeer, map[string]codec.Value{"position": codec.Vec2(1, 2)}, playerConfig))

	obj := sp.spawn(t, 0, "Player")
	id, ok := tr.Tracked(obj)
	require.True(t, ok)
	require.Equal(t, types.NetID(1), id)

	spawns := tr.takeCommand(wire.CmdSpawn)
	require.Equal(t, []types.PeerID{2, 3}, peersOf(spawns))
	for _, p := range spawns {
		require.True(t, p.reliable)
		spawn, err := wire.DecodeSpawn(p.data)
		require.NoError(t, err)
		require.Equal(t, uint8(0), spawn.SceneID)
		require.Equal(t, uint32(sp.id), spawn.SpawnerPath)
		require.Equal(t, types.NetID(1), spawn.NetID)
		require.Equal(t, []types.NetID{2}, spawn.SyncIDs)
		require.Equal(t, "Player", spawn.Name)
		require.Equal(t, mustEncode(t, tr.codec, codec.Vec2(1, 2)), spawn.State)
	}

	// a second object continues the sequence.
	sp.spawn(t, 0, "Player2")
	spawns = tr.takeCommand(wire.CmdSpawn)
	require.Len(t, spawns, 2)
	spawn, err := wire.DecodeSpawn(spawns[0].data)
	require.NoError(t, err)
	require.Equal(t, types.NetID(3), spawn.NetID)
	require.Equal(t, []types.NetID{4}, spawn.SyncIDs)
}

func TestSpawnBeforeConnect(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root,
		playerScene(tr, types.ServerPeer, map[string]codec.Value{"position": codec.Vec2(0, 0)}, playerConfig))
	obj := sp.spawn(t, 0, "Player")
	require.Empty(t, tr.take())

	tr.connect(2)
	spawns := tr.takeCommand(wire.CmdSpawn)
	require.Len(t, spawns, 1)
	require.Equal(t, types.PeerID(2), spawns[0].peer)
	id, _ := tr.Tracked(obj)
	require.Equal(t, types.NetID(1), id)
}

func TestSpawnVisibility(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	var sync *fakeSync
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root, func() types.ObjectID {
		obj := tr.scene.newObject("Player")
		tr.scene.object(obj).props["position"] = codec.Int(1)
		sync = tr.scene.newSync(obj, types.ServerPeer, playerConfig)
		sync.public = false
		sync.visibility[2] = true
		return obj
	})
	obj := sp.spawn(t, 0, "Player")
	require.Equal(t, []types.PeerID{2}, peersOf(tr.takeCommand(wire.CmdSpawn)))

	sync.setVisibility(3, true)
	require.Equal(t, []types.PeerID{3}, peersOf(tr.takeCommand(wire.CmdSpawn)))

	sync.setVisibility(2, false)
	despawns := tr.takeCommand(wire.CmdDespawn)
	require.Equal(t, []types.PeerID{2}, peersOf(despawns))
	id, err := wire.DecodeDespawn(despawns[0].data)
	require.NoError(t, err)
	netID, _ := tr.Tracked(obj)
	require.Equal(t, netID, id)

	// already hidden, nothing to send.
	sync.setVisibility(2, false)
	require.Empty(t, tr.take())

	sync.setVisibility(types.BroadcastPeer, true)
	require.Equal(t, []types.PeerID{2}, peersOf(tr.takeCommand(wire.CmdSpawn)))
	sync.setVisibility(types.BroadcastPeer, true)
	require.Empty(t, tr.takeCommand(wire.CmdSpawn))
}

func TestSpawnWithoutVisibilityVoters(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root, func() types.ObjectID {
		return tr.scene.newObject("Prop")
	})
	sp.spawn(t, 0, "Prop")
	spawns := tr.takeCommand(wire.CmdSpawn)
	require.Len(t, spawns, 1)
	spawn, err := wire.DecodeSpawn(spawns[0].data)
	require.NoError(t, err)
	require.Empty(t, spawn.SyncIDs)
	require.Empty(t, spawn.State)
}

func counterValue(t testing.TB, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSpawnContinuesAfterSendFailure(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3, 4, 5)
	tr.failSend[2] = errors.New("connection reset")
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root, func() types.ObjectID {
		return tr.scene.newObject("Prop")
	})
	sent := counterValue(t, packetsSent.WithLabelValues("spawn"))

	obj, ok := sp.InstantiateScene(0)
	require.True(t, ok)
	require.NoError(t, tr.scene.AddChild(tr.root, obj))
	err := tr.OnSpawn(obj, SpawnerConfig{sp})
	require.ErrorContains(t, err, "connection reset")

	require.Equal(t, []types.PeerID{3, 4, 5}, peersOf(tr.takeCommand(wire.CmdSpawn)))
	require.Equal(t, sent+3, counterValue(t, packetsSent.WithLabelValues("spawn")))
	for _, peer := range []types.PeerID{3, 4, 5} {
		require.Contains(t, tr.peers[peer].spawnNodes, obj)
	}
	require.NotContains(t, tr.peers[2].spawnNodes, obj)

	// the failed peer is retried on the next visibility update.
	delete(tr.failSend, 2)
	require.NoError(t, tr.updateSpawnVisibility(types.BroadcastPeer, tr.tracked[obj]))
	require.Equal(t, []types.PeerID{2}, peersOf(tr.takeCommand(wire.CmdSpawn)))
	require.Contains(t, tr.peers[2].spawnNodes, obj)
}

func TestDespawnContinuesAfterSendFailure(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3, 4)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root, func() types.ObjectID {
		return tr.scene.newObject("Prop")
	})
	obj := sp.spawn(t, 0, "Prop")
	tr.take()

	tr.failSend[3] = errors.New("connection reset")
	err := tr.OnDespawn(obj, SpawnerConfig{sp})
	require.ErrorContains(t, err, "connection reset")
	require.Equal(t, []types.PeerID{2, 4}, peersOf(tr.takeCommand(wire.CmdDespawn)))
	for _, peer := range []types.PeerID{2, 3, 4} {
		require.NotContains(t, tr.peers[peer].spawnNodes, obj)
	}
}

func TestDespawnLocal(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root,
		playerScene(tr, types.ServerPeer, map[string]codec.Value{"position": codec.Int(1)}, playerConfig))
	obj := sp.spawn(t, 0, "Player")
	tr.take()

	require.ErrorIs(t, tr.OnDespawn(obj, SynchronizerConfig{}), ErrInvalidParameter)
	other := tr.scene.newSpawner(types.ServerPeer, tr.root)
	require.ErrorIs(t, tr.OnDespawn(obj, SpawnerConfig{other}), ErrInvalidParameter)

	require.NoError(t, tr.OnDespawn(obj, SpawnerConfig{sp}))
	despawns := tr.takeCommand(wire.CmdDespawn)
	require.Equal(t, []types.PeerID{2, 3}, peersOf(despawns))
	for _, info := range tr.peers {
		require.NotContains(t, info.spawnNodes, obj)
	}
	require.NotContains(t, tr.spawned, obj)

	// despawned objects are not spawned on late peers.
	tr.connect(4)
	require.Empty(t, tr.takeCommand(wire.CmdSpawn))
}

func TestConfigurationKindMismatch(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	obj := tr.scene.newObject("Node")
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root)
	sync := tr.scene.newSync(obj, types.ServerPeer, playerConfig)
	for _, tc := range []struct {
		desc string
		call func() error
	}{
		{"spawn with synchronizer", func() error { return tr.OnSpawn(obj, SynchronizerConfig{sync}) }},
		{"spawn without spawner", func() error { return tr.OnSpawn(obj, SpawnerConfig{}) }},
		{"replication start with spawner", func() error { return tr.OnReplicationStart(obj, SpawnerConfig{sp}) }},
		{"replication stop with spawner", func() error { return tr.OnReplicationStop(obj, SpawnerConfig{sp}) }},
		{"despawn untracked", func() error { return tr.OnDespawn(obj, SpawnerConfig{sp}) }},
		{"spawn missing object", func() error { return tr.OnSpawn(9999, SpawnerConfig{sp}) }},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.ErrorIs(t, tc.call(), ErrInvalidParameter)
		})
	}

	require.NoError(t, tr.OnSpawn(obj, SpawnerConfig{sp}))
	require.ErrorIs(t, tr.OnSpawn(obj, SpawnerConfig{sp}), ErrAlreadyInUse)
}

func TestPeerChange(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	require.ErrorIs(t, tr.OnPeerChange(2, true), ErrAlreadyInUse)
	require.ErrorIs(t, tr.OnPeerChange(3, false), ErrInvalidParameter)
	require.NoError(t, tr.OnPeerChange(2, false))
	require.Empty(t, tr.peers)
}

func TestReset(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	sp := tr.scene.newSpawner(types.ServerPeer, tr.root,
		playerScene(tr, types.ServerPeer, map[string]codec.Value{"position": codec.Int(1)}, playerConfig))
	first := sp.spawn(t, 0, "A")
	sp.spawn(t, 0, "B")
	id, _ := tr.Tracked(first)
	require.Equal(t, types.NetID(1), id)

	tr.OnReset()
	require.Empty(t, tr.peers)
	id, ok := tr.Tracked(first)
	require.True(t, ok)
	require.Zero(t, id)

	tr.take()
	sp.spawn(t, 0, "C")
	tr.connect(2)
	for _, p := range tr.takeCommand(wire.CmdSpawn) {
		spawn, err := wire.DecodeSpawn(p.data)
		require.NoError(t, err)
		require.LessOrEqual(t, spawn.NetID, types.NetID(6))
	}
	id, _ = tr.Tracked(first)
	require.NotZero(t, id)
}

func TestSyncBatchesWithinMTU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictBugs = true
	cfg.MTU = 512
	tr := newTester(t, types.ServerPeer, WithConfig(cfg))
	tr.connect(2)

	payload := func(n int) codec.Value {
		buf := make([]byte, n)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		return codec.Bytes(buf)
	}
	sizes := map[string]int{}
	for _, tc := range []struct {
		name string
		size int
	}{
		{"big", 480},
		{"small", 40},
		{"huge", 600},
	} {
		obj := tr.scene.newObject(tc.name)
		v := payload(tc.size)
		tr.scene.object(obj).props["data"] = v
		sizes[tc.name] = len(mustEncode(t, tr.codec, v))
		tr.scene.newSync(obj, types.ServerPeer, &ReplicationConfig{SyncProperties: []string{"data"}})
		require.NoError(t, tr.scene.AddChild(tr.root, obj))
	}
	require.LessOrEqual(t, wire.MinSyncSize+sizes["big"], cfg.MTU)
	require.Greater(t, wire.MinSyncSize+sizes["big"]+wire.SyncEntryHeaderSize+sizes["small"], cfg.MTU)
	require.Greater(t, wire.MinSyncSize+sizes["huge"], cfg.MTU)

	tr.OnNetworkProcess()
	syncs := tr.takeCommand(wire.CmdSync)
	require.Len(t, syncs, 2)
	var got []int
	for _, p := range syncs {
		require.False(t, p.reliable)
		require.LessOrEqual(t, len(p.data), cfg.MTU)
		counter, entries := syncEntries(t, p.data)
		require.Equal(t, uint16(1), counter)
		require.Len(t, entries, 1)
		require.True(t, entries[0].NetID.IsPathDerived())
		got = append(got, len(entries[0].Payload))
	}
	require.ElementsMatch(t, []int{sizes["big"], sizes["small"]}, got)
}

func TestSyncSkipsUnconfirmedPath(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	obj := tr.scene.newObject("Door")
	tr.scene.object(obj).props["open"] = codec.Bool(true)
	sync := tr.scene.newSync(obj, types.ServerPeer, &ReplicationConfig{SyncProperties: []string{"open"}})
	require.NoError(t, tr.scene.AddChild(tr.root, obj))

	tr.unconfirmed[sync.id] = true
	tr.OnNetworkProcess()
	require.Empty(t, tr.take())

	tr.unconfirmed[sync.id] = false
	tr.OnNetworkProcess()
	syncs := tr.takeCommand(wire.CmdSync)
	require.Len(t, syncs, 1)
	counter, entries := syncEntries(t, syncs[0].data)
	require.Equal(t, uint16(2), counter)
	require.Len(t, entries, 1)
	require.Equal(t, types.PathNetID(uint32(sync.id)), entries[0].NetID)
	require.Equal(t, mustEncode(t, tr.codec, codec.Bool(true)), entries[0].Payload)
}

func TestSyncInterval(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	obj := tr.scene.newObject("Clock")
	tr.scene.object(obj).props["time"] = codec.Int(1)
	sync := tr.scene.newSync(obj, types.ServerPeer, &ReplicationConfig{SyncProperties: []string{"time"}})
	sync.interval = 100 * time.Millisecond
	require.NoError(t, tr.scene.AddChild(tr.root, obj))

	// the same instant satisfies every peer.
	tr.OnNetworkProcess()
	require.Equal(t, []types.PeerID{2, 3}, peersOf(tr.takeCommand(wire.CmdSync)))

	tr.clock.Advance(50 * time.Millisecond)
	tr.OnNetworkProcess()
	require.Empty(t, tr.take())

	tr.clock.Advance(50 * time.Millisecond)
	tr.OnNetworkProcess()
	require.Equal(t, []types.PeerID{2, 3}, peersOf(tr.takeCommand(wire.CmdSync)))
}

func TestSyncVisibility(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	obj := tr.scene.newObject("Secret")
	tr.scene.object(obj).props["code"] = codec.Int(42)
	sync := tr.scene.newSync(obj, types.ServerPeer, &ReplicationConfig{SyncProperties: []string{"code"}})
	sync.public = false
	require.NoError(t, tr.scene.AddChild(tr.root, obj))

	tr.OnNetworkProcess()
	require.Empty(t, tr.take())

	sync.setVisibility(3, true)
	tr.OnNetworkProcess()
	require.Equal(t, []types.PeerID{3}, peersOf(tr.takeCommand(wire.CmdSync)))

	// late peers see public synchronizers.
	sync.setVisibility(types.BroadcastPeer, true)
	tr.connect(4)
	tr.OnNetworkProcess()
	require.Equal(t, []types.PeerID{2, 3, 4}, peersOf(tr.takeCommand(wire.CmdSync)))

	tr.scene.RemoveFromParent(obj)
	tr.OnNetworkProcess()
	require.Empty(t, tr.take())
	require.Empty(t, sync.subscribers)
}

func TestSyncSkipsRemoteAuthority(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	obj := tr.scene.newObject("Avatar")
	tr.scene.object(obj).props["position"] = codec.Int(1)
	tr.scene.newSync(obj, 2, &ReplicationConfig{SyncProperties: []string{"position"}})
	require.NoError(t, tr.scene.AddChild(tr.root, obj))
	tr.OnNetworkProcess()
	require.Empty(t, tr.take())
}

// remoteSync creates an object driven by a synchronizer of peer 2, referenced
// by a path id.
func remoteSync(tr *tester, path uint32) (types.ObjectID, *fakeSync) {
	obj := tr.scene.newObject("Remote")
	sync := tr.scene.newSync(obj, 2, &ReplicationConfig{SyncProperties: []string{"hp"}})
	require.NoError(tr.t, tr.scene.AddChild(tr.root, obj))
	tr.remote[path] = sync.id
	return obj, sync
}

func syncPacket(t testing.TB, tr *tester, counter uint16, entries ...wire.SyncEntry) []byte {
	buf := wire.AppendSyncHeader(nil, counter)
	for _, e := range entries {
		buf = wire.AppendSyncEntry(buf, e.NetID, e.Payload)
	}
	return buf
}

func TestSyncReceiveStaleness(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	obj, _ := remoteSync(tr, 7)
	id := types.PathNetID(7)
	hp := func() int64 { return tr.scene.object(obj).props["hp"].AsInt() }

	for _, step := range []struct {
		counter uint16
		value   int64
		want    int64
	}{
		{10, 1, 1},
		{9, 2, 1},
		{10, 3, 1},
		{11, 4, 4},
		{65530, 5, 4},
		{11 + 32767, 6, 6},
		{65535, 7, 7},
		{3, 8, 8},
		{65534, 9, 8},
	} {
		packet := syncPacket(t, tr, step.counter, wire.SyncEntry{NetID: id, Payload: mustEncode(t, tr.codec, codec.Int(step.value))})
		require.NoError(t, tr.HandlePacket(2, packet))
		require.Equal(t, step.want, hp(), "counter %d", step.counter)
	}
}

func TestSyncReceiveSkipsEntries(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2, 3)
	obj, _ := remoteSync(tr, 7)
	foreign := tr.scene.newObject("Foreign")
	foreignSync := tr.scene.newSync(foreign, 3, &ReplicationConfig{SyncProperties: []string{"hp"}})
	require.NoError(t, tr.scene.AddChild(tr.root, foreign))
	tr.remote[8] = foreignSync.id

	value := mustEncode(t, tr.codec, codec.Int(5))
	packet := syncPacket(t, tr, 1,
		wire.SyncEntry{NetID: 1234, Payload: mustEncode(t, tr.codec, codec.String("unknown"))},
		wire.SyncEntry{NetID: types.PathNetID(99), Payload: value},
		wire.SyncEntry{NetID: types.PathNetID(8), Payload: value},
		wire.SyncEntry{NetID: types.PathNetID(7), Payload: value},
	)
	require.NoError(t, tr.OnSyncReceive(2, packet))
	require.Equal(t, int64(5), tr.scene.object(obj).props["hp"].AsInt())
	require.NotContains(t, tr.scene.object(foreign).props, "hp")
}

func TestSyncReceiveErrors(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	remoteSync(tr, 7)
	value := mustEncode(t, tr.codec, codec.Int(5))
	for _, tc := range []struct {
		desc   string
		from   types.PeerID
		packet []byte
		err    error
	}{
		{"short", 2, []byte{wire.CmdSync, 1, 0}, ErrInvalidData},
		{"unknown peer", 9, syncPacket(t, tr, 1, wire.SyncEntry{NetID: 1, Payload: value}), ErrUnavailable},
		{
			"trailing bytes",
			2,
			syncPacket(t, tr, 1, wire.SyncEntry{NetID: types.PathNetID(7), Payload: append(value, value...)}),
			ErrInvalidData,
		},
		{
			"truncated state",
			2,
			syncPacket(t, tr, 2, wire.SyncEntry{NetID: types.PathNetID(7), Payload: []byte{0xee}}),
			ErrInvalidData,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.ErrorIs(t, tr.OnSyncReceive(tc.from, tc.packet), tc.err)
		})
	}
}

func TestNewer(t *testing.T) {
	for _, tc := range []struct {
		counter, last uint16
		newer         bool
	}{
		{1, 0, true},
		{0, 0, false},
		{0, 1, false},
		{0, 65535, true},
		{32767, 0, true},
		{32768, 0, false},
		{100, 65500, true},
		{65500, 100, false},
	} {
		require.Equal(t, tc.newer, newer(tc.counter, tc.last), "%d after %d", tc.counter, tc.last)
	}
}
