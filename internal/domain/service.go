package domain

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/metrics"
)

// platformCut labels attempt records for trim operations, which have no
// source platform of their own.
const platformCut SourcePlatform = "cut"

// PipelineService ties the download orchestrator, the public file store
// and the event sink together. Every terminal outcome is recorded to the
// sink before it is returned to the caller.
type PipelineService struct {
	dl      Downloader
	store   FileStore
	sink    EventSink
	metrics metrics.Metrics
}

// NewPipelineService creates a PipelineService. A nil Metrics falls back
// to a no-op implementation.
func NewPipelineService(dl Downloader, store FileStore, sink EventSink, m metrics.Metrics) *PipelineService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &PipelineService{dl: dl, store: store, sink: sink, metrics: m}
}

// Download runs the full video pipeline: fetch (and mux if needed), then
// publish. It returns the artifact id.
func (s *PipelineService) Download(ctx context.Context, req DownloadRequest) (string, error) {
	return s.run(ctx, req, s.dl.Fetch)
}

// DownloadAudio runs the audio-only MP3 pipeline.
func (s *PipelineService) DownloadAudio(ctx context.Context, req DownloadRequest) (string, error) {
	req.AudioOnlyMP3 = true
	return s.run(ctx, req, s.dl.FetchAudioOnly)
}

func (s *PipelineService) run(ctx context.Context, req DownloadRequest, fetch func(context.Context, DownloadRequest) (*StagedFile, error)) (string, error) {
	start := time.Now()
	staged, err := fetch(ctx, req)
	if err != nil {
		s.record(ctx, AttemptRecord{
			Platform:  req.Platform,
			URL:       req.URL,
			Status:    AttemptError,
			Error:     err.Error(),
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		})
		return "", err
	}

	size := fileSize(staged.Path)
	id, err := s.store.Publish(staged.Path, staged.Kind)
	if err != nil {
		err = fmt.Errorf("publish: %w", err)
		s.record(ctx, AttemptRecord{
			Platform:  req.Platform,
			URL:       req.URL,
			Quality:   staged.Quality,
			Status:    AttemptError,
			Error:     err.Error(),
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		})
		return "", err
	}
	s.metrics.IncPublished(string(staged.Kind))

	s.record(ctx, AttemptRecord{
		Platform:  req.Platform,
		URL:       req.URL,
		Quality:   staged.Quality,
		SizeBytes: size,
		Duration:  time.Since(start),
		Status:    AttemptSuccess,
		Timestamp: time.Now(),
	})
	return id, nil
}

// Cut trims a published artifact to [start, end] seconds and publishes
// the result as a fresh artifact. The source stays untouched.
func (s *PipelineService) Cut(ctx context.Context, id string, start, end float64) (string, error) {
	began := time.Now()
	rangeLabel := fmt.Sprintf("%.2f-%.2f", start, end)
	fail := func(err error) (string, error) {
		s.record(ctx, AttemptRecord{
			Platform:  platformCut,
			URL:       id,
			Quality:   rangeLabel,
			Status:    AttemptError,
			Error:     err.Error(),
			Duration:  time.Since(began),
			Timestamp: time.Now(),
		})
		return "", err
	}

	srcPath, _, ok := s.store.Resolve(id)
	if !ok {
		return fail(Errorf(KindNotFound, "artifact %s not found", id))
	}

	staged, err := s.dl.Cut(ctx, srcPath, start, end)
	if err != nil {
		return fail(err)
	}

	size := fileSize(staged.Path)
	newID, err := s.store.Publish(staged.Path, staged.Kind)
	if err != nil {
		return fail(fmt.Errorf("publish: %w", err))
	}
	s.metrics.IncPublished(string(staged.Kind))

	s.record(ctx, AttemptRecord{
		Platform:  platformCut,
		URL:       id,
		Quality:   rangeLabel,
		SizeBytes: size,
		Duration:  time.Since(began),
		Status:    AttemptSuccess,
		Timestamp: time.Now(),
	})
	return newID, nil
}

// Resolve redeems an artifact id for serving.
func (s *PipelineService) Resolve(id string) (string, MediaKind, bool) {
	return s.store.Resolve(id)
}

// RecordAccess notes a successful redemption. Best-effort by contract.
func (s *PipelineService) RecordAccess(id string) {
	s.store.RecordAccess(id)
}

// record writes the attempt to the sink and bumps counters. A sink
// failure must not fail the request; it is logged and dropped.
func (s *PipelineService) record(ctx context.Context, rec AttemptRecord) {
	s.metrics.IncAttempt(string(rec.Platform), string(rec.Status))
	s.metrics.ObserveAttemptDuration(string(rec.Platform), rec.Duration.Seconds())
	if s.sink == nil {
		return
	}
	if err := s.sink.RecordAttempt(ctx, rec); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"platform": rec.Platform,
			"url":      rec.URL,
		}).Warn("failed to record attempt")
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
