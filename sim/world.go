package sim

import (
	"fmt"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication"
	"github.com/spacemeshos/go-replica/scene"
)

// PlayerScene is the only scene registered with the spawner. Crates are custom spawns.
const PlayerScene uint8 = 0

var (
	playerConfig = &replication.ReplicationConfig{
		SpawnProperties: []string{"color"},
		SyncProperties:  []string{"position", "health"},
	}
	crateConfig = &replication.ReplicationConfig{
		SyncProperties: []string{"position"},
	}
)

// World is the scene layout every peer of a simulation starts with:
// /root/Level receives the spawned objects of /root/Spawner.
type World struct {
	Tree    *scene.Tree
	Level   types.ObjectID
	Spawner *scene.Spawner
}

func NewWorld(tree *scene.Tree) (*World, error) {
	w := &World{Tree: tree, Level: tree.NewNode("Level")}
	if err := tree.AddChild(tree.Root(), w.Level); err != nil {
		return nil, err
	}
	w.Spawner = tree.NewSpawner("Spawner", w.Level, types.ServerPeer)
	if err := tree.AddChild(tree.Root(), w.Spawner.ID()); err != nil {
		return nil, err
	}
	if _, err := w.Spawner.AddScene(player); err != nil {
		return nil, err
	}
	w.Spawner.SetSpawnFunction(crate)
	return w, nil
}

func player(tree *scene.Tree) types.ObjectID {
	obj := tree.NewNode("Player")
	mustSet(tree, obj, "color", codec.String("white"))
	mustSet(tree, obj, "position", codec.Vec2(0, 0))
	mustSet(tree, obj, "health", codec.Int(100))
	if _, err := tree.NewSynchronizer(obj, types.ServerPeer, playerConfig); err != nil {
		panic(fmt.Sprintf("BUG: synchronizer of a detached node: %v", err))
	}
	return obj
}

// crate is spawned from its initial position.
func crate(tree *scene.Tree, arg codec.Value) (types.ObjectID, bool) {
	if arg.Kind() != codec.KindVec2 {
		return 0, false
	}
	obj := tree.NewNode("Crate")
	mustSet(tree, obj, "position", arg)
	if _, err := tree.NewSynchronizer(obj, types.ServerPeer, crateConfig); err != nil {
		panic(fmt.Sprintf("BUG: synchronizer of a detached node: %v", err))
	}
	return obj, true
}

func mustSet(tree *scene.Tree, obj types.ObjectID, prop string, v codec.Value) {
	if err := tree.Set(obj, prop, v); err != nil {
		panic(fmt.Sprintf("BUG: set %s on a new node: %v", prop, err))
	}
}

// Object is the replicated state of a spawned object.
type Object struct {
	Name     string
	Color    string
	Position codec.Value
}

// Snapshot returns the objects spawned into the level, keyed by name.
func (w *World) Snapshot() map[string]Object {
	rst := map[string]Object{}
	for _, obj := range w.Tree.Children(w.Level) {
		name := w.Tree.Name(obj)
		o := Object{Name: name}
		if v, err := w.Tree.Get(obj, "color"); err == nil {
			o.Color = v.AsString()
		}
		if v, err := w.Tree.Get(obj, "position"); err == nil {
			o.Position = v
		}
		rst[name] = o
	}
	return rst
}
