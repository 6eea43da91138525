package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
	"github.com/emi-ran/video-downloader-bot/internal/metrics"
)

// Sweeper periodically deletes artifacts older than the TTL, together
// with their registry entries. It runs on its own schedule, independent
// of request traffic, and only contends with publishes for the duration
// of the registry snapshot and the final batch delete.
type Sweeper struct {
	store    *FileStore
	ttl      time.Duration
	interval time.Duration
	metrics  metrics.Metrics
}

// NewSweeper creates a sweeper over the given store. A nil Metrics falls
// back to a no-op implementation.
func NewSweeper(store *FileStore, ttl, interval time.Duration, m metrics.Metrics) *Sweeper {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Sweeper{store: store, ttl: ttl, interval: interval, metrics: m}
}

// Run loops until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{"ttl": s.ttl, "interval": s.interval}).Info("retention sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("retention sweeper shutting down")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(time.Now()); err != nil {
				logrus.WithError(err).Error("sweep cycle failed")
			} else if n > 0 {
				logrus.WithField("removed", n).Info("sweep cycle completed")
			}
		}
	}
}

// SweepOnce runs a single cycle against the given wall clock: snapshot
// the registry, delete every expired artifact file, then drop the ids
// from the registry as one batch with a single persist.
func (s *Sweeper) SweepOnce(now time.Time) (int, error) {
	snapshot := s.store.reg.Snapshot()

	var expired []string
	for id, createdAt := range snapshot {
		if now.Sub(createdAt) > s.ttl {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	removed := make([]string, 0, len(expired))
	for _, id := range expired {
		ok := true
		for _, kind := range []domain.MediaKind{domain.MediaVideo, domain.MediaAudio} {
			path := filepath.Join(s.store.dir, id+kind.Ext())
			// A file that is already gone counts as deleted.
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logrus.WithError(err).WithField("id", id).Warn("failed to delete expired artifact")
				ok = false
			}
		}
		if ok {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	// Ids with a failed delete stay registered; the next cycle retries.
	if err := s.store.reg.DeleteBatch(removed); err != nil {
		return 0, err
	}
	s.metrics.AddSweptFiles(len(removed))
	return len(removed), nil
}
