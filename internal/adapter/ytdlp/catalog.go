// Package ytdlp adapts the yt-dlp binary to the StreamCatalog and
// StreamFetcher ports. Metadata comes from `yt-dlp -J`; retrieval uses
// explicit format ids so the chosen rendition is exactly what lands on
// disk.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

// Client wraps the yt-dlp binary.
type Client struct {
	bin     string
	timeout time.Duration
}

// New creates a Client. bin defaults to "yt-dlp" on PATH; a zero
// timeout disables the deadline.
func New(bin string, timeout time.Duration) *Client {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &Client{bin: bin, timeout: timeout}
}

// mediaInfo is the subset of the yt-dlp JSON dump we consume.
type mediaInfo struct {
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Formats   []formatInfo `json:"formats"`
}

type formatInfo struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	ABR            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

func (f formatInfo) hasVideo() bool { return f.VCodec != "" && f.VCodec != "none" }
func (f formatInfo) hasAudio() bool { return f.ACodec != "" && f.ACodec != "none" }

func (f formatInfo) size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// Probe returns the title and thumbnail URL for a media page.
func (c *Client) Probe(ctx context.Context, url string) (string, string, error) {
	info, err := c.dump(ctx, url)
	if err != nil {
		return "", "", err
	}
	return info.Title, info.Thumbnail, nil
}

// VideoStreams lists MP4 video renditions ordered by descending
// resolution, indexed from 1.
func (c *Client) VideoStreams(ctx context.Context, url string) ([]domain.Rendition, error) {
	info, err := c.dump(ctx, url)
	if err != nil {
		return nil, err
	}

	var formats []formatInfo
	for _, f := range info.Formats {
		if f.hasVideo() && f.Ext == "mp4" {
			formats = append(formats, f)
		}
	}
	sort.SliceStable(formats, func(i, j int) bool {
		if formats[i].Height != formats[j].Height {
			return formats[i].Height > formats[j].Height
		}
		return formats[i].TBR > formats[j].TBR
	})

	renditions := make([]domain.Rendition, 0, len(formats))
	for i, f := range formats {
		renditions = append(renditions, domain.Rendition{
			Index:       i + 1,
			Kind:        domain.MediaVideo,
			FormatID:    f.FormatID,
			Progressive: f.hasAudio(),
			Resolution:  fmt.Sprintf("%dp", f.Height),
			FPS:         int(f.FPS),
			BitrateKbps: int(f.TBR),
			SizeBytes:   f.size(),
		})
	}
	return renditions, nil
}

// AudioStreams lists audio-only renditions ordered by descending
// bitrate, indexed from 1.
func (c *Client) AudioStreams(ctx context.Context, url string) ([]domain.Rendition, error) {
	info, err := c.dump(ctx, url)
	if err != nil {
		return nil, err
	}

	var formats []formatInfo
	for _, f := range info.Formats {
		if f.hasAudio() && !f.hasVideo() {
			formats = append(formats, f)
		}
	}
	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].ABR > formats[j].ABR
	})

	renditions := make([]domain.Rendition, 0, len(formats))
	for i, f := range formats {
		renditions = append(renditions, domain.Rendition{
			Index:       i + 1,
			Kind:        domain.MediaAudio,
			FormatID:    f.FormatID,
			BitrateKbps: int(f.ABR),
			SizeBytes:   f.size(),
		})
	}
	return renditions, nil
}

func (c *Client) dump(ctx context.Context, url string) (*mediaInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin, "-J", "--no-playlist", "--no-warnings", url)
	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s failed: %w: %s", c.bin, err, string(ee.Stderr))
		}
		return nil, fmt.Errorf("%s failed: %w", c.bin, err)
	}

	var info mediaInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("parse %s output: %w", c.bin, err)
	}
	return &info, nil
}
