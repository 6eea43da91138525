package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// One Prom per process: collectors register against the default registry.
func TestProm(t *testing.T) {
	p := NewProm("vidserve_test")

	p.IncAttempt("youtube", "success")
	p.IncAttempt("youtube", "success")
	p.IncAttempt("tiktok", "error")
	p.ObserveAttemptDuration("youtube", 1.5)
	p.IncPublished("video")
	p.AddSweptFiles(3)

	if got := testutil.ToFloat64(p.attempts.WithLabelValues("youtube", "success")); got != 2 {
		t.Errorf("attempts{youtube,success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.attempts.WithLabelValues("tiktok", "error")); got != 1 {
		t.Errorf("attempts{tiktok,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.published.WithLabelValues("video")); got != 1 {
		t.Errorf("published{video} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.sweptFiles); got != 3 {
		t.Errorf("swept_files = %v, want 3", got)
	}
}

func TestNoopSatisfiesInterface(t *testing.T) {
	var m Metrics = Noop{}
	m.IncAttempt("youtube", "success")
	m.ObserveAttemptDuration("youtube", 0.1)
	m.IncPublished("audio")
	m.AddSweptFiles(0)
}
