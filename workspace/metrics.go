package workspace

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lastMaterializeTimestamp *prometheus.GaugeVec
	materializeCount         *prometheus.CounterVec
	materializeLatency       *prometheus.HistogramVec
)

// EnableMetrics registers the materialize-cycle metrics:
//   - git_ws_materialize_last_success_timestamp (tags: path)
//   - git_ws_materialize_count (tags: path, success)
//   - git_ws_materialize_latency_seconds (tags: path)
func EnableMetrics(namespace string, registerer prometheus.Registerer) {
	lastMaterializeTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "materialize_last_success_timestamp",
		Help:      "Timestamp of the last successful materialize of a project",
	}, []string{"path"})

	materializeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "materialize_count",
		Help:      "Count of project materialize operations",
	}, []string{"path", "success"})

	materializeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "materialize_latency_seconds",
		Help:      "Latency of a project materialize operation",
		Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 150, 300},
	}, []string{"path"})

	registerer.MustRegister(lastMaterializeTimestamp, materializeCount, materializeLatency)
}

func recordMaterialize(path string, success bool) {
	if lastMaterializeTimestamp == nil || materializeCount == nil {
		return
	}
	if success {
		lastMaterializeTimestamp.With(prometheus.Labels{"path": path}).Set(float64(time.Now().Unix()))
	}
	materializeCount.With(prometheus.Labels{"path": path, "success": strconv.FormatBool(success)}).Inc()
}

func observeMaterializeLatency(path string, start time.Time) {
	if materializeLatency == nil {
		return
	}
	materializeLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
