package asset_engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts download activity. A nil *Metrics records nothing.
type Metrics struct {
	jobs    *prometheus.CounterVec
	bytes   prometheus.Counter
	retries prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_download_jobs_total",
				Help: "Total download jobs by result",
			},
			[]string{"result"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launcher_download_bytes_total",
			Help: "Total bytes written by download jobs",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launcher_download_retries_total",
			Help: "Total download attempts after the first",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.bytes, m.retries)
	}
	return m
}

func (m *Metrics) succeeded(n int64) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues("succeeded").Inc()
	m.bytes.Add(float64(n))
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues("failed").Inc()
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
