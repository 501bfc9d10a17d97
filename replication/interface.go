package replication

import (
	"time"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
)

//go:generate mockgen -package=replication -destination=./mocks.go -source=./interface.go

// Transport delivers packets to connected peers.
// Send must not retain data after it returns.
type Transport interface {
	LocalPeer() types.PeerID
	Connected() bool
	Send(peer types.PeerID, data []byte, reliable bool) error
}

// PathCache maps local objects to numeric references that a peer can resolve.
type PathCache interface {
	// MakeObjectCache registers obj for remote reference and returns its id.
	MakeObjectCache(obj types.ObjectID) (uint32, error)
	// SendObjectCache makes sure peer learns the reference of obj and reports
	// whether peer already confirmed it.
	SendObjectCache(obj types.ObjectID, peer types.PeerID) (uint32, bool, error)
	// CachedObject resolves a reference sent by peer.
	CachedObject(peer types.PeerID, id uint32) (types.ObjectID, bool)
}

// Lifecycle mutates the scene graph that owns replicated objects.
type Lifecycle interface {
	Exists(obj types.ObjectID) bool
	Name(obj types.ObjectID) string
	SetName(obj types.ObjectID, name string)
	HasChild(parent types.ObjectID, name string) bool
	// AddChild inserts child into the scene. Replication start hooks of
	// synchronizers inside child run synchronously, before it returns.
	AddChild(parent, child types.ObjectID) error
	Parent(obj types.ObjectID) (types.ObjectID, bool)
	RemoveFromParent(obj types.ObjectID)
	QueueFree(obj types.ObjectID)
	// OnDestroyed registers fn to run once, when obj is destroyed.
	OnDestroyed(obj types.ObjectID, fn func())
	Spawner(obj types.ObjectID) (Spawner, bool)
}

// Properties reads and writes ordered lists of object properties.
type Properties interface {
	GetState(obj types.ObjectID, paths []string) ([]codec.Value, error)
	SetState(obj types.ObjectID, paths []string, values []codec.Value) error
}

// ValueCodec encodes property values. Lists are concatenations of values.
type ValueCodec interface {
	EncodeValue(v codec.Value) ([]byte, error)
	DecodeValue(buf []byte) (codec.Value, int, error)
	EncodeValues(values []codec.Value) ([]byte, error)
	DecodeValues(buf []byte, count int) ([]codec.Value, int, error)
}

// Spawner creates and destroys a class of replicated objects.
type Spawner interface {
	ID() types.ObjectID
	Authority() types.PeerID
	SpawnParent() (types.ObjectID, bool)
	// SceneIndex returns the registered scene of obj, or wire.CustomScene.
	SceneIndex(obj types.ObjectID) uint8
	SpawnArgument(obj types.ObjectID) codec.Value
	InstantiateScene(sceneID uint8) (types.ObjectID, bool)
	InstantiateCustom(arg codec.Value) (types.ObjectID, bool)
	NotifySpawned(obj types.ObjectID)
	NotifyDespawned(obj types.ObjectID)
}

// Synchronizer declares which properties of its root replicate and to whom.
type Synchronizer interface {
	ID() types.ObjectID
	Root() types.ObjectID
	Authority() types.PeerID
	VisibleTo(peer types.PeerID) bool
	// ReplicationConfig returns nil when the synchronizer has no config.
	ReplicationConfig() *ReplicationConfig
	ReplicationInterval() time.Duration
	SubscribeVisibility(fn func(peer types.PeerID)) (cancel func())
}
