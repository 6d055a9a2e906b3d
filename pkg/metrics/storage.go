package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	CleanupResultSuccess = "success"
	CleanupResultFailure = "failure"
)

// CleanupMetrics counts best-effort object deletions run after a committed write.
type CleanupMetrics struct {
	total *prometheus.CounterVec
}

func NewCleanupMetrics(reg prometheus.Registerer) *CleanupMetrics {
	if reg == nil {
		return &CleanupMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_cleanup_total",
		Help: "Post-commit object deletions by result.",
	}, []string{"result"})
	reg.MustRegister(total)
	return &CleanupMetrics{total: total}
}

func (c *CleanupMetrics) IncSuccess() {
	c.inc(CleanupResultSuccess)
}

func (c *CleanupMetrics) IncFailure() {
	c.inc(CleanupResultFailure)
}

func (c *CleanupMetrics) inc(result string) {
	if c == nil || c.total == nil {
		return
	}
	c.total.WithLabelValues(result).Inc()
}
