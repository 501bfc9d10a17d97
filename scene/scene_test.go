package scene

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
)

func newTree(t *testing.T) *Tree {
	return New(WithLogger(zaptest.NewLogger(t)))
}

func mustAdd(t *testing.T, tree *Tree, parent types.ObjectID, name string) types.ObjectID {
	obj := tree.NewNode(name)
	require.NoError(t, tree.AddChild(parent, obj))
	return obj
}

func TestPaths(t *testing.T) {
	tree := newTree(t)
	world := mustAdd(t, tree, tree.Root(), "World")
	player := mustAdd(t, tree, world, "Player")
	body := mustAdd(t, tree, player, "Body")

	path, ok := tree.Path(player)
	require.True(t, ok)
	require.Equal(t, "/root/World/Player", path)
	obj, ok := tree.Lookup("/root/World/Player/Body")
	require.True(t, ok)
	require.Equal(t, body, obj)
	obj, ok = tree.Lookup("/root")
	require.True(t, ok)
	require.Equal(t, tree.Root(), obj)
	_, ok = tree.Lookup("/root/World/Enemy")
	require.False(t, ok)
	_, ok = tree.Lookup("/other/World")
	require.False(t, ok)

	obj, ok = tree.Resolve(body, "../../Player/./Body")
	require.True(t, ok)
	require.Equal(t, body, obj)
	_, ok = tree.Resolve(tree.Root(), "..")
	require.False(t, ok)

	detached := tree.NewNode("Detached")
	_, ok = tree.Path(detached)
	require.False(t, ok)

	require.True(t, tree.HasChild(world, "Player"))
	require.Equal(t, []types.ObjectID{player}, tree.Children(world))
	parent, ok := tree.Parent(player)
	require.True(t, ok)
	require.Equal(t, world, parent)
}

func TestNames(t *testing.T) {
	tree := newTree(t)
	obj := tree.NewNode("a/b:c")
	require.Equal(t, "a_b_c", tree.Name(obj))
	tree.SetName(obj, "x.y")
	require.Equal(t, "x_y", tree.Name(obj))
	require.Equal(t, "Player@2", ValidateName("Player@2"))
}

func TestAddChildErrors(t *testing.T) {
	tree := newTree(t)
	world := mustAdd(t, tree, tree.Root(), "World")
	player := mustAdd(t, tree, world, "Player")

	require.ErrorIs(t, tree.AddChild(world, player), ErrHasParent)
	require.ErrorIs(t, tree.AddChild(world, tree.Root()), ErrHasParent)
	require.ErrorIs(t, tree.AddChild(world, tree.NewNode("Player")), ErrNameConflict)
	require.ErrorIs(t, tree.AddChild(world, 9999), ErrNotFound)

	tree.RemoveFromParent(world)
	require.ErrorIs(t, tree.AddChild(player, world), ErrCycle)
	require.False(t, tree.InTree(player))
}

func TestProperties(t *testing.T) {
	tree := newTree(t)
	player := mustAdd(t, tree, tree.Root(), "Player")
	mustAdd(t, tree, player, "Body")

	require.NoError(t, tree.Set(player, "hp", codec.Int(10)))
	require.NoError(t, tree.Set(player, "Body:position", codec.Vec2(1, 2)))
	values, err := tree.GetState(player, []string{"hp", "Body:position"})
	require.NoError(t, err)
	require.Equal(t, []codec.Value{codec.Int(10), codec.Vec2(1, 2)}, values)

	_, err = tree.Get(player, "mana")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = tree.Get(player, "Legs:position")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = tree.Get(player, "Body:")
	require.ErrorIs(t, err, ErrNotFound)

	err = tree.SetState(player, []string{"hp", "Legs:position"}, []codec.Value{codec.Int(1), codec.Vec2(0, 0)})
	require.ErrorIs(t, err, ErrNotFound)
	v, err := tree.Get(player, "hp")
	require.NoError(t, err)
	require.Equal(t, codec.Int(10), v)

	require.Error(t, tree.SetState(player, []string{"hp"}, nil))
	require.NoError(t, tree.SetState(player, []string{"hp", "Body:position"}, []codec.Value{codec.Int(1), codec.Nil()}))
	v, err = tree.Get(player, "Body:position")
	require.NoError(t, err)
	require.True(t, v.IsNil())
}

func TestQueueFree(t *testing.T) {
	tree := newTree(t)
	player := mustAdd(t, tree, tree.Root(), "Player")
	body := mustAdd(t, tree, player, "Body")
	var destroyed []types.ObjectID
	tree.OnDestroyed(player, func() { destroyed = append(destroyed, player) })
	tree.OnDestroyed(body, func() { destroyed = append(destroyed, body) })

	tree.QueueFree(player)
	tree.QueueFree(player)
	require.True(t, tree.Exists(player))
	tree.Flush()
	require.False(t, tree.Exists(player))
	require.False(t, tree.Exists(body))
	require.Equal(t, []types.ObjectID{body, player}, destroyed)
	require.Empty(t, tree.Children(tree.Root()))

	tree.Flush()
	require.Len(t, destroyed, 2)

	tree.QueueFree(tree.Root())
	tree.Flush()
	require.True(t, tree.Exists(tree.Root()))
}

func TestSynchronizerVisibility(t *testing.T) {
	tree := newTree(t)
	player := mustAdd(t, tree, tree.Root(), "Player")
	sync, err := tree.NewSynchronizer(player, types.ServerPeer, nil, WithPublicVisibility(false))
	require.NoError(t, err)
	var notified []types.PeerID
	cancel := sync.SubscribeVisibility(func(peer types.PeerID) { notified = append(notified, peer) })

	require.False(t, sync.VisibleTo(types.BroadcastPeer))
	require.False(t, sync.VisibleTo(2))
	sync.SetVisibilityFor(2, true)
	require.True(t, sync.VisibleTo(2))
	require.False(t, sync.VisibleTo(3))
	require.False(t, sync.VisibleTo(types.BroadcastPeer))

	sync.SetPublicVisibility(true)
	require.True(t, sync.VisibleTo(3))
	sync.SetVisibilityFilter(func(peer types.PeerID) bool { return peer != 3 })
	require.False(t, sync.VisibleTo(3))
	require.True(t, sync.VisibleTo(2))
	sync.UpdateVisibility(4)
	require.Equal(t, []types.PeerID{2, types.BroadcastPeer, types.BroadcastPeer, 4}, notified)

	cancel()
	sync.SetVisibilityFor(2, false)
	require.Len(t, notified, 4)

	second, err := tree.NewSynchronizer(player, types.ServerPeer, nil)
	require.NoError(t, err)
	require.Equal(t, "MultiplayerSynchronizer2", tree.Name(second.ID()))
	require.Equal(t, player, second.Root())
}

func TestSynchronizerReplicationHooks(t *testing.T) {
	tree := newTree(t)
	hooks := NewMockHooks(gomock.NewController(t))
	tree.SetHooks(hooks)

	player := tree.NewNode("Player")
	sync, err := tree.NewSynchronizer(player, types.ServerPeer, nil)
	require.NoError(t, err)

	hooks.EXPECT().OnReplicationStart(player, gomock.Any()).Return(nil)
	require.NoError(t, tree.AddChild(tree.Root(), player))

	hooks.EXPECT().OnReplicationStop(player, gomock.Any()).Return(nil)
	tree.RemoveFromParent(player)

	hooks.EXPECT().OnReplicationStart(player, gomock.Any()).Return(nil)
	require.NoError(t, tree.AddChild(tree.Root(), player))

	hooks.EXPECT().OnReplicationStop(player, gomock.Any()).Return(nil)
	tree.Free(sync.ID())
	_, ok := tree.Synchronizer(sync.ID())
	require.False(t, ok)
}
