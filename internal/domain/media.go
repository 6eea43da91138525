package domain

import (
	"strconv"
	"time"
)

// MediaKind distinguishes the two artifact flavors the store serves.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Ext returns the container extension for the kind.
func (k MediaKind) Ext() string {
	if k == MediaAudio {
		return ".mp3"
	}
	return ".mp4"
}

// Rendition is one selectable quality option from a catalog lookup.
// Indexes are 1-based and stable within a single response: video lists
// are ordered by descending resolution, audio lists by descending
// bitrate. Renditions are produced fresh per query and never persisted.
type Rendition struct {
	Index       int
	Kind        MediaKind
	FormatID    string
	Progressive bool
	Resolution  string
	FPS         int
	BitrateKbps int
	SizeBytes   int64
}

// Quality is the human-readable label recorded with attempts.
func (r Rendition) Quality() string {
	if r.Kind == MediaAudio {
		if r.BitrateKbps > 0 {
			return strconv.Itoa(r.BitrateKbps) + "kbps"
		}
		return "audio"
	}
	if r.Resolution != "" {
		return r.Resolution
	}
	return "video"
}

// DownloadRequest describes one download attempt. Rendition indexes refer
// to the catalog listing for the same URL; zero means "not chosen".
type DownloadRequest struct {
	URL          string
	Platform     SourcePlatform
	VideoIndex   int
	AudioIndex   int
	AudioOnlyMP3 bool
}

// Validate checks the statically checkable invariants. The progressive /
// split-stream invariant needs catalog data and is enforced by the
// orchestrator after the rendition lookup.
func (r DownloadRequest) Validate() error {
	if r.URL == "" {
		return Errorf(KindInvalidSelection, "url is required")
	}
	switch r.Platform {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok:
	default:
		return Errorf(KindInvalidSelection, "unsupported platform %q", r.Platform)
	}
	if r.AudioOnlyMP3 {
		if r.AudioIndex < 1 {
			return Errorf(KindInvalidSelection, "audio-only download requires an audio selection")
		}
		return nil
	}
	if r.Platform == PlatformYouTube && r.VideoIndex < 1 {
		return Errorf(KindInvalidSelection, "video selection is required")
	}
	if r.VideoIndex < 0 || r.AudioIndex < 0 {
		return Errorf(KindInvalidSelection, "rendition indexes are 1-based")
	}
	return nil
}

// Artifact is a finished, publicly redeemable file. The ID is the only
// caller-visible handle; the store owns the file from publish until the
// sweeper reclaims it.
type Artifact struct {
	ID        string
	Path      string
	Kind      MediaKind
	CreatedAt time.Time
}

// AttemptStatus is the terminal outcome of a pipeline operation.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptError   AttemptStatus = "error"
)

// AttemptRecord is the append-only event written for every terminal
// outcome. Records are write-once and never mutated.
type AttemptRecord struct {
	Platform  SourcePlatform
	URL       string
	Quality   string
	SizeBytes int64
	Duration  time.Duration
	Status    AttemptStatus
	Error     string
	Timestamp time.Time
}
