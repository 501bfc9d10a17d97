package types

import (
	"fmt"
	"strconv"
)

// PeerID identifies a participant of a multiplayer session.
//
// BroadcastPeer (0) addresses every connected peer, ServerPeer (1) is the
// peer that hosts the session.
type PeerID int32

const (
	BroadcastPeer PeerID = 0
	ServerPeer    PeerID = 1
)

// String returns a string representation of the PeerID, for logging purposes.
func (p PeerID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// ObjectID is the local identity of a scene object. Zero is never a valid object.
type ObjectID uint64

// EmptyObjectID is a canonical empty ObjectID.
var EmptyObjectID ObjectID

// String returns a string representation of the ObjectID, for logging purposes.
func (id ObjectID) String() string {
	return fmt.Sprintf("obj#%d", uint64(id))
}

// PathDerivedBit marks a NetID that refers to a path cache entry instead of a
// sequentially allocated identifier.
const PathDerivedBit uint32 = 0x8000_0000

// NetID is a session scoped network identifier. Zero means unassigned.
type NetID uint32

// PathNetID builds a path derived NetID from a path cache id.
func PathNetID(pathID uint32) NetID {
	return NetID(pathID | PathDerivedBit)
}

// IsPathDerived returns true if the id was derived from the path cache.
func (id NetID) IsPathDerived() bool {
	return uint32(id)&PathDerivedBit != 0
}

// PathID returns the path cache id carried by a path derived NetID.
func (id NetID) PathID() uint32 {
	return uint32(id) &^ PathDerivedBit
}

// Uint32 returns the wire representation of the id.
func (id NetID) Uint32() uint32 {
	return uint32(id)
}

// String returns a string representation of the NetID, for logging purposes.
func (id NetID) String() string {
	if id.IsPathDerived() {
		return "path:" + strconv.FormatUint(uint64(id.PathID()), 10)
	}
	return strconv.FormatUint(uint64(id), 10)
}
