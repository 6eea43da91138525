// Package ffmpeg adapts the external ffmpeg binary to the MediaMuxer
// port. Invocations block the calling goroutine for their duration; an
// explicit per-invocation timeout keeps a hung process from hanging its
// worker forever.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

// Muxer invokes ffmpeg with explicit input/output paths.
type Muxer struct {
	bin     string
	timeout time.Duration
}

// New creates a Muxer. bin defaults to "ffmpeg" on PATH; a zero timeout
// disables the deadline.
func New(bin string, timeout time.Duration) *Muxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Muxer{bin: bin, timeout: timeout}
}

// Mux merges a video and an audio track into output. MuxCopy stream-
// copies both tracks; MuxReencodeAudio re-encodes audio to AAC while
// still copying video.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, output string, mode domain.MuxMode) ([]byte, error) {
	args := []string{"-y", "-i", videoPath, "-i", audioPath}
	switch mode {
	case domain.MuxCopy:
		args = append(args, "-c", "copy")
	case domain.MuxReencodeAudio:
		args = append(args, "-c:v", "copy", "-c:a", "aac")
	default:
		return nil, fmt.Errorf("unknown mux mode %q", mode)
	}
	args = append(args, output)
	return m.run(ctx, args)
}

// TranscodeMP3 converts input to MP3 at 192 kbps / 44.1 kHz.
func (m *Muxer) TranscodeMP3(ctx context.Context, input, output string) ([]byte, error) {
	args := []string{"-y", "-i", input, "-vn", "-ab", "192k", "-ar", "44100", "-f", "mp3", output}
	return m.run(ctx, args)
}

// CutCopy stream-copies the [start, end] second range of input. The
// seek is an output option so the range stays accurate with -c copy.
func (m *Muxer) CutCopy(ctx context.Context, input, output string, start, end float64) ([]byte, error) {
	args := []string{
		"-y", "-i", input,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c", "copy",
		output,
	}
	return m.run(ctx, args)
}

func (m *Muxer) run(ctx context.Context, args []string) ([]byte, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, m.bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w", m.bin, err)
	}
	return output, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
