package replication

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication/wire"
)

const spawnerPath = 10

type client struct {
	*tester
	spawner *fakeSpawner
	syncs   []*fakeSync
}

// newClient prepares peer 2 to receive objects spawned by the server.
func newClient(t *testing.T) *client {
	tr := newTester(t, 2)
	tr.connect(types.ServerPeer)
	c := &client{tester: tr}
	c.spawner = tr.scene.newSpawner(types.ServerPeer, tr.root, func() types.ObjectID {
		obj := tr.scene.newObject("")
		c.syncs = append(c.syncs, tr.scene.newSync(obj, types.ServerPeer, playerConfig))
		return obj
	})
	tr.remote[spawnerPath] = c.spawner.id
	return c
}

func (c *client) spawnPacket(id types.NetID, name string, syncIDs ...types.NetID) wire.Spawn {
	return wire.Spawn{
		SpawnerPath: spawnerPath,
		NetID:       id,
		SyncIDs:     syncIDs,
		Name:        name,
		State:       mustEncode(c.t, c.codec, codec.Vec2(3, 4)),
	}
}

func encodeSpawn(s wire.Spawn) []byte {
	return s.AppendTo(nil)
}

func TestSpawnReceive(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.HandlePacket(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "Player", 2))))

	require.Len(t, c.spawner.spawned, 1)
	obj := c.spawner.spawned[0]
	o := c.scene.object(obj)
	require.Equal(t, "Player", o.name)
	require.Equal(t, c.root, o.parent)
	require.Equal(t, codec.Vec2(3, 4), o.props["position"])
	id, ok := c.Tracked(obj)
	require.True(t, ok)
	require.Equal(t, types.NetID(1), id)
	require.Equal(t, obj, c.peers[types.ServerPeer].recvNodes[1])
	require.Equal(t, c.syncs[0].id, c.peers[types.ServerPeer].recvSyncIDs[2])
	require.Nil(t, c.pending)

	sync := syncPacket(t, c.tester, 1, wire.SyncEntry{NetID: 2, Payload: mustEncode(t, c.codec, codec.Vec2(5, 6))})
	require.NoError(t, c.HandlePacket(types.ServerPeer, sync))
	require.Equal(t, codec.Vec2(5, 6), o.props["position"])

	require.NoError(t, c.HandlePacket(types.ServerPeer, wire.AppendDespawn(nil, 1)))
	require.Equal(t, []types.ObjectID{obj}, c.spawner.despawned)
	require.False(t, c.scene.Exists(obj))
	_, ok = c.Tracked(obj)
	require.False(t, ok)
	require.Empty(t, c.peers[types.ServerPeer].recvNodes)
	require.Empty(t, c.peers[types.ServerPeer].recvSyncIDs)

	// the same net id may be reused once despawned.
	require.NoError(t, c.HandlePacket(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "Player", 2))))
}

func TestSpawnReceiveErrors(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		from    types.PeerID
		prepare func(c *client)
		packet  func(c *client) []byte
		err     error
	}{
		{
			desc: "short",
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player", 2))[:wire.SpawnHeaderSize-1]
			},
			err: ErrInvalidData,
		},
		{
			desc: "unknown peer",
			from: 3,
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player", 2))
			},
			err: ErrUnavailable,
		},
		{
			desc: "unknown spawner",
			packet: func(c *client) []byte {
				s := c.spawnPacket(1, "Player", 2)
				s.SpawnerPath = spawnerPath + 1
				return encodeSpawn(s)
			},
			err: ErrDoesNotExist,
		},
		{
			desc: "not a spawner",
			prepare: func(c *client) {
				c.remote[spawnerPath+1] = c.root
			},
			packet: func(c *client) []byte {
				s := c.spawnPacket(1, "Player", 2)
				s.SpawnerPath = spawnerPath + 1
				return encodeSpawn(s)
			},
			err: ErrDoesNotExist,
		},
		{
			desc: "not spawner authority",
			prepare: func(c *client) {
				c.spawner.authority = 3
			},
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player", 2))
			},
			err: ErrUnauthorized,
		},
		{
			desc: "zero name length",
			packet: func(c *client) []byte {
				buf := encodeSpawn(c.spawnPacket(1, "", 2))
				binary.LittleEndian.PutUint32(buf[14:], 0)
				return buf
			},
			err: ErrInvalidData,
		},
		{
			desc: "empty name",
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "", 2))
			},
			err: ErrInvalidData,
		},
		{
			desc: "invalid name",
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "../Player", 2))
			},
			err: ErrInvalidData,
		},
		{
			desc: "duplicate name",
			prepare: func(c *client) {
				obj := c.scene.newObject("Player")
				require.NoError(c.t, c.scene.AddChild(c.root, obj))
			},
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player", 2))
			},
			err: ErrInvalidData,
		},
		{
			desc: "duplicate net id",
			prepare: func(c *client) {
				require.NoError(c.t, c.OnSpawnReceive(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "First", 2))))
			},
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Second", 3))
			},
			err: ErrAlreadyInUse,
		},
		{
			desc: "unknown scene",
			packet: func(c *client) []byte {
				s := c.spawnPacket(1, "Player", 2)
				s.SceneID = 7
				return encodeSpawn(s)
			},
			err: ErrUnauthorized,
		},
		{
			desc: "missing sync id",
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player"))
			},
			err: ErrInvalidData,
		},
		{
			desc: "unused sync id",
			packet: func(c *client) []byte {
				return encodeSpawn(c.spawnPacket(1, "Player", 2, 3))
			},
			err: ErrInvalidData,
		},
		{
			desc: "corrupted state",
			packet: func(c *client) []byte {
				s := c.spawnPacket(1, "Player", 2)
				s.State = []byte{0xee}
				return encodeSpawn(s)
			},
			err: ErrInvalidData,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			c := newClient(t)
			if tc.prepare != nil {
				tc.prepare(c)
			}
			from := tc.from
			if from == 0 {
				from = types.ServerPeer
			}
			err := c.OnSpawnReceive(from, tc.packet(c))
			require.ErrorIs(t, err, tc.err)
			require.Nil(t, c.pending)
		})
	}
}

func TestSpawnReceiveFreesDetachedObject(t *testing.T) {
	c := newClient(t)
	c.scene.failAdd = errors.New("scene is locked")
	err := c.HandlePacket(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "Player", 2)))
	require.ErrorContains(t, err, "scene is locked")

	require.Len(t, c.syncs, 1)
	obj := c.syncs[0].root
	require.False(t, c.scene.Exists(obj))
	_, ok := c.Tracked(obj)
	require.False(t, ok)
	require.Empty(t, c.peers[types.ServerPeer].recvNodes)
	require.Empty(t, c.spawner.spawned)
	require.Nil(t, c.pending)

	// the net id is free for the next spawn.
	c.scene.failAdd = nil
	require.NoError(t, c.HandlePacket(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "Player", 2))))
	require.Len(t, c.spawner.spawned, 1)
	require.Equal(t, c.spawner.spawned[0], c.peers[types.ServerPeer].recvNodes[1])
}

func TestDespawnReceiveErrors(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.OnSpawnReceive(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "Player", 2))))
	c.connect(3)
	for _, tc := range []struct {
		desc   string
		from   types.PeerID
		packet []byte
		err    error
	}{
		{"short", types.ServerPeer, []byte{wire.CmdDespawn, 1}, ErrInvalidData},
		{"unknown net id", types.ServerPeer, wire.AppendDespawn(nil, 9), ErrUnauthorized},
		{"other peer", 3, wire.AppendDespawn(nil, 1), ErrUnauthorized},
		{"unknown peer", 4, wire.AppendDespawn(nil, 1), ErrUnauthorized},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.ErrorIs(t, c.OnDespawnReceive(tc.from, tc.packet), tc.err)
		})
	}
	require.Len(t, c.peers[types.ServerPeer].recvNodes, 1)
}

func TestDisconnectFreesRemoteObjects(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.OnSpawnReceive(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "A", 2))))
	require.NoError(t, c.OnSpawnReceive(types.ServerPeer, encodeSpawn(c.spawnPacket(3, "B", 4))))
	spawned := c.spawner.spawned
	require.Len(t, spawned, 2)

	require.NoError(t, c.OnPeerChange(types.ServerPeer, false))
	for _, obj := range spawned {
		require.False(t, c.scene.Exists(obj))
		_, ok := c.Tracked(obj)
		require.False(t, ok)
	}
	require.Empty(t, c.syncs[0].subscribers)
	require.Empty(t, c.peers)
}

func TestResetFreesRemoteObjects(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.OnSpawnReceive(types.ServerPeer, encodeSpawn(c.spawnPacket(1, "A", 2))))
	obj := c.spawner.spawned[0]
	c.OnReset()
	require.False(t, c.scene.Exists(obj))
	require.Empty(t, c.peers)
}

func TestHandlePacketErrors(t *testing.T) {
	tr := newTester(t, types.ServerPeer)
	tr.connect(2)
	require.ErrorIs(t, tr.HandlePacket(2, nil), ErrInvalidData)
	require.ErrorIs(t, tr.HandlePacket(2, []byte{3, 0, 0}), ErrInvalidData)
	require.ErrorIs(t, tr.HandlePacket(2, []byte{wire.CmdSimplifyPath, 0, 0, 0, 0}), ErrInvalidData)
}
