package replication

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-replica/metrics"
	"github.com/spacemeshos/go-replica/replication/wire"
)

const (
	namespace = "replication"

	commandLabel = "command"
	reasonLabel  = "reason"
)

var (
	packetsSent = metrics.NewCounter(
		"packets_sent",
		namespace,
		"number of packets sent by command",
		[]string{commandLabel},
	)
	bytesSent = metrics.NewCounter(
		"bytes_sent",
		namespace,
		"number of bytes sent by command",
		[]string{commandLabel},
	)
	packetSize = metrics.NewHistogramWithBuckets(
		"packet_size",
		namespace,
		"size of sent packets by command",
		[]string{commandLabel},
		prometheus.ExponentialBuckets(16, 2, 8),
	)
	packetsReceived = metrics.NewCounter(
		"packets_received",
		namespace,
		"number of packets received by command",
		[]string{commandLabel},
	)
	packetsRejected = metrics.NewCounter(
		"packets_rejected",
		namespace,
		"number of inbound packets rejected by command",
		[]string{commandLabel},
	)
	syncDropped = metrics.NewCounter(
		"sync_dropped",
		namespace,
		"number of sync entries skipped by reason",
		[]string{reasonLabel},
	)
	trackedObjects = metrics.NewGauge(
		"tracked_objects",
		namespace,
		"number of objects with replication state",
		[]string{},
	).WithLabelValues()
	sessionPeers = metrics.NewGauge(
		"peers",
		namespace,
		"number of peers with a replication session",
		[]string{},
	).WithLabelValues()

	droppedOversize    = syncDropped.WithLabelValues("oversize")
	droppedUnconfirmed = syncDropped.WithLabelValues("unconfirmed")
	droppedState       = syncDropped.WithLabelValues("state")
	droppedStale       = syncDropped.WithLabelValues("stale")
	droppedUnknown     = syncDropped.WithLabelValues("unknown")
	droppedForeign     = syncDropped.WithLabelValues("unauthorized")
)

func commandName(cmd byte) string {
	switch cmd {
	case wire.CmdSimplifyPath:
		return "simplify_path"
	case wire.CmdConfirmPath:
		return "confirm_path"
	case wire.CmdSpawn:
		return "spawn"
	case wire.CmdDespawn:
		return "despawn"
	case wire.CmdSync:
		return "sync"
	}
	return "unknown"
}
