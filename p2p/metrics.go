package p2p

import (
	"github.com/spacemeshos/go-replica/metrics"
)

const (
	subsystem      = "p2p"
	transportLabel = "transport"
	channelLabel   = "channel"
)

var (
	packets = metrics.NewCounter(
		"packets",
		subsystem,
		"packets by transport, channel and direction",
		[]string{transportLabel, channelLabel, "direction"},
	)
	bytes = metrics.NewCounter(
		"bytes",
		subsystem,
		"payload bytes by transport, channel and direction",
		[]string{transportLabel, channelLabel, "direction"},
	)
	dropped = metrics.NewCounter(
		"dropped",
		subsystem,
		"packets dropped before delivery",
		[]string{transportLabel, "reason"},
	)
	peers = metrics.NewGauge(
		"peers",
		subsystem,
		"connected peers",
		[]string{transportLabel},
	)
)

// Tracker counts traffic of one transport.
type Tracker struct {
	transport string
}

func NewTracker(transport string) Tracker {
	return Tracker{transport: transport}
}

func (t Tracker) Sent(reliable bool, size int) {
	packets.WithLabelValues(t.transport, Channel(reliable), "out").Inc()
	bytes.WithLabelValues(t.transport, Channel(reliable), "out").Add(float64(size))
}

func (t Tracker) Received(reliable bool, size int) {
	packets.WithLabelValues(t.transport, Channel(reliable), "in").Inc()
	bytes.WithLabelValues(t.transport, Channel(reliable), "in").Add(float64(size))
}

func (t Tracker) Dropped(reason string) {
	dropped.WithLabelValues(t.transport, reason).Inc()
}

func (t Tracker) Connected() {
	peers.WithLabelValues(t.transport).Inc()
}

func (t Tracker) Disconnected() {
	peers.WithLabelValues(t.transport).Dec()
}
