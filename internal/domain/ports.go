package domain

import "context"

// StreamCatalog is the driven port for rendition metadata lookup.
type StreamCatalog interface {
	Probe(ctx context.Context, url string) (title, thumbnailURL string, err error)
	VideoStreams(ctx context.Context, url string) ([]Rendition, error)
	AudioStreams(ctx context.Context, url string) ([]Rendition, error)
}

// StreamFetcher is the driven port for raw stream retrieval.
type StreamFetcher interface {
	// FetchStream retrieves one specific rendition to dest.
	FetchStream(ctx context.Context, url, formatID, dest string) error
	// FetchBest retrieves the best progressive rendition to dest, for
	// platforms without a quality choice.
	FetchBest(ctx context.Context, url, dest string) error
}

// MuxMode selects the merge strategy for split streams.
type MuxMode string

const (
	// MuxCopy stream-copies both tracks, no re-encode.
	MuxCopy MuxMode = "copy"
	// MuxReencodeAudio stream-copies video and re-encodes audio to AAC,
	// trading CPU for a container that always plays.
	MuxReencodeAudio MuxMode = "reencode_audio"
)

// MediaMuxer is the driven port for the external transcoder process.
// Every method returns the captured process output alongside the error.
type MediaMuxer interface {
	Mux(ctx context.Context, videoPath, audioPath, output string, mode MuxMode) ([]byte, error)
	TranscodeMP3(ctx context.Context, input, output string) ([]byte, error)
	CutCopy(ctx context.Context, input, output string, start, end float64) ([]byte, error)
}

// StagedFile is a finished download sitting in the staging area, ready
// to be published.
type StagedFile struct {
	Path    string
	Kind    MediaKind
	Quality string
}

// Downloader is the driving port of the download orchestrator. Results
// are staged files; publishing them is the caller's job.
type Downloader interface {
	Fetch(ctx context.Context, req DownloadRequest) (*StagedFile, error)
	FetchAudioOnly(ctx context.Context, req DownloadRequest) (*StagedFile, error)
	Cut(ctx context.Context, srcPath string, start, end float64) (*StagedFile, error)
}

// FileStore is the public artifact store: publish moves a staged file in
// and makes it redeemable, resolve redeems an id.
type FileStore interface {
	Publish(localPath string, kind MediaKind) (string, error)
	Resolve(id string) (path string, kind MediaKind, ok bool)
	// RecordAccess is best-effort bookkeeping; it never fails redemption.
	RecordAccess(id string)
}

// EventSink receives append-only attempt and access records.
type EventSink interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord) error
	RecordAccess(ctx context.Context, artifactID string) error
}
