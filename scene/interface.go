package scene

import (
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/replication"
)

//go:generate mockgen -package=scene -destination=./mocks.go -source=./interface.go

// Hooks receives object configuration events from the tree.
// It is implemented by *replication.Replicator.
type Hooks interface {
	OnSpawn(obj types.ObjectID, cfg replication.Configuration) error
	OnDespawn(obj types.ObjectID, cfg replication.Configuration) error
	OnReplicationStart(obj types.ObjectID, cfg replication.Configuration) error
	OnReplicationStop(obj types.ObjectID, cfg replication.Configuration) error
}
