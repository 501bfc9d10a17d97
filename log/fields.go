package log

import (
	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/common/types"
)

// Peer returns a "peer" field.
func Peer(p types.PeerID) zap.Field {
	return zap.Int32("peer", int32(p))
}

// NetID returns a "net_id" field.
func NetID(id types.NetID) zap.Field {
	return zap.Stringer("net_id", id)
}

// Object returns an "object" field.
func Object(id types.ObjectID) zap.Field {
	return zap.Uint64("object", uint64(id))
}

// Synchronizer returns a "synchronizer" field.
func Synchronizer(id types.ObjectID) zap.Field {
	return zap.Uint64("synchronizer", uint64(id))
}

// Command returns a "command" field for a wire command byte.
func Command(cmd byte) zap.Field {
	return zap.Uint8("command", cmd)
}
