// Package download implements the fetch-and-mux half of the pipeline:
// selecting renditions from the catalog, retrieving raw streams to
// request-scoped scratch files and driving the external muxer. It never
// touches the registry; publishing staged results is the caller's job.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

// Orchestrator coordinates catalog lookup, stream retrieval and muxing
// for one request at a time. Concurrent requests never collide because
// every intermediate file is named from a per-request token, not from
// the video title.
type Orchestrator struct {
	catalog domain.StreamCatalog
	fetcher domain.StreamFetcher
	muxer   domain.MediaMuxer
	staging string
}

// New creates an orchestrator staging results under stagingDir.
func New(catalog domain.StreamCatalog, fetcher domain.StreamFetcher, muxer domain.MediaMuxer, stagingDir string) *Orchestrator {
	return &Orchestrator{
		catalog: catalog,
		fetcher: fetcher,
		muxer:   muxer,
		staging: stagingDir,
	}
}

// Fetch retrieves the requested video and returns the staged file.
//
// Progressive renditions are fetched straight to the staged path. Split
// renditions are fetched to two scratch files and merged: first with a
// plain stream copy, then, if the copy exits non-zero, re-encoding the
// audio track to AAC. Scratch files are removed on every exit path.
func (o *Orchestrator) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.StagedFile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Platform != domain.PlatformYouTube {
		return o.fetchProgressiveBest(ctx, req)
	}
	return o.fetchYouTube(ctx, req)
}

func (o *Orchestrator) fetchYouTube(ctx context.Context, req domain.DownloadRequest) (*domain.StagedFile, error) {
	videos, err := o.catalog.VideoStreams(ctx, req.URL)
	if err != nil {
		return nil, domain.WrapError(domain.KindCatalog, "list video streams", err)
	}
	video, err := pick(videos, req.VideoIndex)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	out := filepath.Join(o.staging, token+".mp4")

	if video.Progressive {
		if err := o.fetcher.FetchStream(ctx, req.URL, video.FormatID, out); err != nil {
			os.Remove(out)
			return nil, domain.WrapError(domain.KindFetchFailed, "fetch progressive stream", err)
		}
		return &domain.StagedFile{Path: out, Kind: domain.MediaVideo, Quality: video.Quality()}, nil
	}

	// Split streams: the request must carry an audio choice too.
	if req.AudioIndex < 1 {
		return nil, domain.Errorf(domain.KindInvalidSelection, "rendition %d is not progressive, audio selection is required", req.VideoIndex)
	}
	audios, err := o.catalog.AudioStreams(ctx, req.URL)
	if err != nil {
		return nil, domain.WrapError(domain.KindCatalog, "list audio streams", err)
	}
	audio, err := pick(audios, req.AudioIndex)
	if err != nil {
		return nil, err
	}

	videoScratch := filepath.Join(o.staging, token+"_video.mp4")
	audioScratch := filepath.Join(o.staging, token+"_audio.mp4")
	defer removeScratch(videoScratch, audioScratch)

	if err := o.fetcher.FetchStream(ctx, req.URL, video.FormatID, videoScratch); err != nil {
		return nil, domain.WrapError(domain.KindFetchFailed, "fetch video stream", err)
	}
	if err := o.fetcher.FetchStream(ctx, req.URL, audio.FormatID, audioScratch); err != nil {
		return nil, domain.WrapError(domain.KindFetchFailed, "fetch audio stream", err)
	}

	if err := o.mergeStreams(ctx, videoScratch, audioScratch, out); err != nil {
		return nil, err
	}
	return &domain.StagedFile{Path: out, Kind: domain.MediaVideo, Quality: video.Quality()}, nil
}

// mergeStreams runs the two-attempt mux policy: fast stream copy, then a
// safe fallback re-encoding the audio track. The error from a double
// failure carries the safe path's captured output.
func (o *Orchestrator) mergeStreams(ctx context.Context, videoPath, audioPath, out string) error {
	_, err := o.muxer.Mux(ctx, videoPath, audioPath, out, domain.MuxCopy)
	if err == nil {
		return nil
	}
	logrus.WithError(err).Debug("fast-path mux failed, retrying with audio re-encode")

	os.Remove(out)
	output, err := o.muxer.Mux(ctx, videoPath, audioPath, out, domain.MuxReencodeAudio)
	if err != nil {
		os.Remove(out)
		return &domain.Error{Kind: domain.KindMuxFailed, Msg: "merge streams", Err: err, Output: string(output)}
	}
	return nil
}

// fetchProgressiveBest handles platforms without a rendition choice:
// Instagram and TikTok posts are a single progressive stream fetched at
// the best available quality.
func (o *Orchestrator) fetchProgressiveBest(ctx context.Context, req domain.DownloadRequest) (*domain.StagedFile, error) {
	out := filepath.Join(o.staging, uuid.NewString()+".mp4")
	if err := o.fetcher.FetchBest(ctx, req.URL, out); err != nil {
		os.Remove(out)
		return nil, domain.WrapError(domain.KindFetchFailed, "fetch video", err)
	}
	return &domain.StagedFile{Path: out, Kind: domain.MediaVideo, Quality: "best"}, nil
}

// FetchAudioOnly retrieves the chosen audio rendition and transcodes it
// to MP3 at fixed parameters (192 kbps, 44.1 kHz). There is no fallback:
// a transcode failure is terminal.
func (o *Orchestrator) FetchAudioOnly(ctx context.Context, req domain.DownloadRequest) (*domain.StagedFile, error) {
	req.AudioOnlyMP3 = true
	if err := req.Validate(); err != nil {
		return nil, err
	}

	audios, err := o.catalog.AudioStreams(ctx, req.URL)
	if err != nil {
		return nil, domain.WrapError(domain.KindCatalog, "list audio streams", err)
	}
	audio, err := pick(audios, req.AudioIndex)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	scratch := filepath.Join(o.staging, token+"_audio.mp4")
	out := filepath.Join(o.staging, token+".mp3")
	defer removeScratch(scratch)

	if err := o.fetcher.FetchStream(ctx, req.URL, audio.FormatID, scratch); err != nil {
		return nil, domain.WrapError(domain.KindFetchFailed, "fetch audio stream", err)
	}

	output, err := o.muxer.TranscodeMP3(ctx, scratch, out)
	if err != nil {
		os.Remove(out)
		return nil, &domain.Error{Kind: domain.KindMuxFailed, Msg: "transcode to mp3", Err: err, Output: string(output)}
	}
	return &domain.StagedFile{Path: out, Kind: domain.MediaAudio, Quality: audio.Quality()}, nil
}

// Cut copies the [start, end] second range of srcPath into a new staged
// file without re-encoding. Range-accurate copy is assumed cheap and
// reliable for the supported containers; there is deliberately no
// re-encode fallback.
func (o *Orchestrator) Cut(ctx context.Context, srcPath string, start, end float64) (*domain.StagedFile, error) {
	if start < 0 || end <= start {
		return nil, domain.Errorf(domain.KindInvalidSelection, "invalid cut range %.2f-%.2f", start, end)
	}

	ext := filepath.Ext(srcPath)
	kind := domain.MediaVideo
	if ext == domain.MediaAudio.Ext() {
		kind = domain.MediaAudio
	}

	out := filepath.Join(o.staging, uuid.NewString()+ext)
	output, err := o.muxer.CutCopy(ctx, srcPath, out, start, end)
	if err != nil {
		os.Remove(out)
		return nil, &domain.Error{Kind: domain.KindCutFailed, Msg: "cut range copy", Err: err, Output: string(output)}
	}
	return &domain.StagedFile{Path: out, Kind: kind, Quality: fmt.Sprintf("%.2f-%.2f", start, end)}, nil
}

// pick selects a 1-based rendition index from a catalog listing.
func pick(renditions []domain.Rendition, index int) (domain.Rendition, error) {
	if index < 1 || index > len(renditions) {
		return domain.Rendition{}, domain.Errorf(domain.KindInvalidSelection, "rendition index %d out of range (1-%d)", index, len(renditions))
	}
	return renditions[index-1], nil
}

func removeScratch(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", p).Warn("failed to remove scratch file")
		}
	}
}
