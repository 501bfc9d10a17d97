package pathcache

import "github.com/spacemeshos/go-replica/metrics"

const namespace = "pathcache"

var (
	pathsSent = metrics.NewCounter(
		"paths_sent",
		namespace,
		"number of paths announced to peers",
		[]string{},
	).WithLabelValues()
	confirmations = metrics.NewCounter(
		"confirmations",
		namespace,
		"number of path confirmations received",
		[]string{"valid"},
	)
	resolutions = metrics.NewCounter(
		"resolve",
		namespace,
		"number of remote path resolutions by cache outcome",
		[]string{"outcome"},
	)
	resolveHits   = resolutions.WithLabelValues("hit")
	resolveMisses = resolutions.WithLabelValues("miss")
)

func validLabel(valid bool) string {
	if valid {
		return "true"
	}
	return "false"
}
