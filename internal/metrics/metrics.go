package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines counters for the download pipeline and the sweeper.
type Metrics interface {
	IncAttempt(platform, status string)
	ObserveAttemptDuration(platform string, durationSeconds float64)
	IncPublished(kind string)
	AddSweptFiles(n int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncAttempt(string, string)             {}
func (Noop) ObserveAttemptDuration(string, float64) {}
func (Noop) IncPublished(string)                   {}
func (Noop) AddSweptFiles(int)                     {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	published       *prometheus.CounterVec
	sweptFiles      prometheus.Counter
	once            sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Download attempts by platform and status",
		}, []string{"platform", "status"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall-clock time of download attempts by platform",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"platform"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Artifacts published by media kind",
		}, []string{"kind"}),
		sweptFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_files_total",
			Help:      "Expired artifacts removed by the retention sweeper",
		}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.attempts, p.attemptDuration, p.published, p.sweptFiles)
	})
}

func (p *Prom) IncAttempt(platform, status string) {
	p.attempts.WithLabelValues(platform, status).Inc()
}

func (p *Prom) ObserveAttemptDuration(platform string, durationSeconds float64) {
	p.attemptDuration.WithLabelValues(platform).Observe(durationSeconds)
}

func (p *Prom) IncPublished(kind string) {
	p.published.WithLabelValues(kind).Inc()
}

func (p *Prom) AddSweptFiles(n int) {
	p.sweptFiles.Add(float64(n))
}
