package scene

import (
	"fmt"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication"
	"github.com/spacemeshos/go-replica/replication/wire"
)

// SceneFunc builds a new detached subtree and returns its top node.
type SceneFunc func(t *Tree) types.ObjectID

// SpawnFunc builds a subtree from a custom spawn argument.
type SpawnFunc func(t *Tree, arg codec.Value) (types.ObjectID, bool)

// Spawner creates replicated children of a spawn parent.
// Nodes spawned locally with Spawn or SpawnCustom are announced to the
// replicator once ready, and despawned when they leave the tree.
type Spawner struct {
	tree      *Tree
	id        types.ObjectID
	parent    types.ObjectID
	authority types.PeerID
	scenes    []SceneFunc
	custom    SpawnFunc

	sceneOf map[types.ObjectID]uint8
	argOf   map[types.ObjectID]codec.Value
	// local nodes waiting to become ready, then tracked until they exit.
	local   map[types.ObjectID]bool
	spawned []func(types.ObjectID)
	gone    []func(types.ObjectID)
}

// NewSpawner creates a detached spawner node that spawns children of parent.
func (t *Tree) NewSpawner(name string, parent types.ObjectID, authority types.PeerID) *Spawner {
	n := t.newNode(name)
	sp := &Spawner{
		tree:      t,
		id:        n.id,
		parent:    parent,
		authority: authority,
		sceneOf:   map[types.ObjectID]uint8{},
		argOf:     map[types.ObjectID]codec.Value{},
		local:     map[types.ObjectID]bool{},
	}
	n.spawner = sp
	t.parents[parent] = append(t.parents[parent], sp)
	return sp
}

// AddScene registers a spawnable scene and returns its index.
func (sp *Spawner) AddScene(fn SceneFunc) (uint8, error) {
	if len(sp.scenes) >= int(wire.CustomScene) {
		return 0, fmt.Errorf("spawner %v is limited to %d scenes", sp.id, wire.CustomScene)
	}
	sp.scenes = append(sp.scenes, fn)
	return uint8(len(sp.scenes) - 1), nil
}

// SetSpawnFunction enables custom spawns.
func (sp *Spawner) SetSpawnFunction(fn SpawnFunc) {
	sp.custom = fn
}

func (sp *Spawner) SetAuthority(peer types.PeerID) {
	sp.authority = peer
}

// OnSpawned registers fn to be called for every object spawned by a remote authority.
func (sp *Spawner) OnSpawned(fn func(types.ObjectID)) {
	sp.spawned = append(sp.spawned, fn)
}

// OnDespawned registers fn to be called for every object despawned by a remote authority.
func (sp *Spawner) OnDespawned(fn func(types.ObjectID)) {
	sp.gone = append(sp.gone, fn)
}

// Spawn instantiates a registered scene as a child of the spawn parent.
func (sp *Spawner) Spawn(sceneID uint8, name string) (types.ObjectID, error) {
	obj, ok := sp.InstantiateScene(sceneID)
	if !ok {
		return 0, fmt.Errorf("%w: scene %d of spawner %v", ErrNotFound, sceneID, sp.id)
	}
	return sp.add(obj, name)
}

// SpawnCustom instantiates a node with the custom spawn function.
// The argument is replicated, and remote peers call their spawn function with it.
func (sp *Spawner) SpawnCustom(arg codec.Value, name string) (types.ObjectID, error) {
	obj, ok := sp.InstantiateCustom(arg)
	if !ok {
		return 0, fmt.Errorf("%w: custom spawn of spawner %v", ErrNotFound, sp.id)
	}
	return sp.add(obj, name)
}

func (sp *Spawner) add(obj types.ObjectID, name string) (types.ObjectID, error) {
	if name != "" {
		sp.tree.SetName(obj, name)
	}
	sp.local[obj] = false
	if err := sp.tree.AddChild(sp.parent, obj); err != nil {
		if !sp.tree.InTree(obj) {
			delete(sp.local, obj)
			sp.tree.Free(obj)
		}
		return 0, err
	}
	return obj, nil
}

func (sp *Spawner) nodeReady(obj types.ObjectID) error {
	ready, ok := sp.local[obj]
	if !ok || ready || sp.tree.hooks == nil {
		return nil
	}
	sp.local[obj] = true
	return sp.tree.hooks.OnSpawn(obj, replication.SpawnerConfig{Spawner: sp})
}

func (sp *Spawner) nodeExiting(obj types.ObjectID) error {
	ready, ok := sp.local[obj]
	if !ok {
		return nil
	}
	delete(sp.local, obj)
	if !ready || sp.tree.hooks == nil {
		return nil
	}
	return sp.tree.hooks.OnDespawn(obj, replication.SpawnerConfig{Spawner: sp})
}

func (sp *Spawner) ID() types.ObjectID {
	return sp.id
}

func (sp *Spawner) Authority() types.PeerID {
	return sp.authority
}

// SpawnParent returns the spawn parent if it is in the tree.
func (sp *Spawner) SpawnParent() (types.ObjectID, bool) {
	return sp.parent, sp.tree.InTree(sp.parent)
}

func (sp *Spawner) SceneIndex(obj types.ObjectID) uint8 {
	if idx, ok := sp.sceneOf[obj]; ok {
		return idx
	}
	return wire.CustomScene
}

func (sp *Spawner) SpawnArgument(obj types.ObjectID) codec.Value {
	return sp.argOf[obj]
}

func (sp *Spawner) InstantiateScene(sceneID uint8) (types.ObjectID, bool) {
	if int(sceneID) >= len(sp.scenes) {
		return 0, false
	}
	obj := sp.scenes[sceneID](sp.tree)
	sp.sceneOf[obj] = sceneID
	sp.tree.OnDestroyed(obj, func() { delete(sp.sceneOf, obj) })
	return obj, true
}

func (sp *Spawner) InstantiateCustom(arg codec.Value) (types.ObjectID, bool) {
	if sp.custom == nil {
		return 0, false
	}
	obj, ok := sp.custom(sp.tree, arg)
	if !ok {
		return 0, false
	}
	sp.argOf[obj] = arg
	sp.tree.OnDestroyed(obj, func() { delete(sp.argOf, obj) })
	return obj, true
}

func (sp *Spawner) NotifySpawned(obj types.ObjectID) {
	for _, fn := range sp.spawned {
		fn(obj)
	}
}

func (sp *Spawner) NotifyDespawned(obj types.ObjectID) {
	for _, fn := range sp.gone {
		fn(obj)
	}
}
