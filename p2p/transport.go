// Package p2p defines the packet transports that carry replication traffic.
//
// A transport delivers datagrams between numbered peers over two channels:
// a reliable ordered one and an unreliable one that may drop or reorder.
// Inbound packets and peer changes are exposed as channels so a session can
// consume them from a single goroutine.
package p2p

import (
	"errors"

	"github.com/spacemeshos/go-replica/common/types"
)

var (
	ErrClosed       = errors.New("transport closed")
	ErrNotConnected = errors.New("peer not connected")
	ErrQueueFull    = errors.New("queue full")
	ErrTooLarge     = errors.New("packet too large")
)

// Packet is a datagram received from a peer. Data is owned by the receiver.
type Packet struct {
	From     types.PeerID
	Data     []byte
	Reliable bool
}

// Event reports that a peer connected or disconnected.
type Event struct {
	Peer      types.PeerID
	Connected bool
}

// Host is one endpoint of a transport.
type Host interface {
	LocalPeer() types.PeerID
	// Connected returns true while the host can exchange packets.
	Connected() bool
	// Send queues a copy of data for peer. BroadcastPeer sends to every connected peer.
	Send(peer types.PeerID, data []byte, reliable bool) error
	Packets() <-chan Packet
	Events() <-chan Event
	Close() error
}

// Channel names a delivery channel in logs and metrics.
func Channel(reliable bool) string {
	if reliable {
		return "reliable"
	}
	return "unreliable"
}
