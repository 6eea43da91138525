package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

const fixtureJSON = `{
  "title": "Test Video",
  "thumbnail": "https://i.ytimg.com/vi/x/maxres.jpg",
  "formats": [
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "filesize": 3000000},
    {"format_id": "139", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.5", "abr": 48.0, "filesize": 1100000},
    {"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "height": 360, "fps": 30, "tbr": 500, "filesize": 8000000},
    {"format_id": "137", "ext": "mp4", "vcodec": "avc1.640028", "acodec": "none", "height": 1080, "fps": 30, "tbr": 4400, "filesize_approx": 50000000},
    {"format_id": "136", "ext": "mp4", "vcodec": "avc1.4d401f", "acodec": "none", "height": 720, "fps": 30, "tbr": 2300, "filesize": 25000000},
    {"format_id": "302", "ext": "webm", "vcodec": "vp9", "acodec": "none", "height": 720, "fps": 60, "tbr": 2600, "filesize": 26000000}
  ]
}`

// fakeYTDLP writes a script that dumps the fixture for -J calls and
// creates the -o target for download calls.
func fakeYTDLP(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "info.json"), []byte(fixtureJSON), 0644); err != nil {
		t.Fatal(err)
	}

	script := `#!/bin/sh
dir=$(dirname "$0")
printf '%s\n' "$@" > "$dir/args"
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out=$a; fi
  if [ "$a" = "-J" ]; then cat "$dir/info.json"; exit 0; fi
  prev=$a
done
: > "$out"
`
	bin := filepath.Join(dir, "yt-dlp")
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func recordedArgs(t *testing.T, bin string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args"))
	if err != nil {
		t.Fatalf("fake binary recorded no args: %v", err)
	}
	return strings.ReplaceAll(string(data), "\n", " ")
}

func TestProbe(t *testing.T) {
	c := New(fakeYTDLP(t), 0)

	title, thumbnail, err := c.Probe(context.Background(), "https://youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if title != "Test Video" {
		t.Errorf("title = %q, want Test Video", title)
	}
	if thumbnail != "https://i.ytimg.com/vi/x/maxres.jpg" {
		t.Errorf("thumbnail = %q", thumbnail)
	}
}

func TestVideoStreams(t *testing.T) {
	c := New(fakeYTDLP(t), 0)

	streams, err := c.VideoStreams(context.Background(), "https://youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("VideoStreams() error = %v", err)
	}

	// Only MP4 video formats, ordered by descending resolution, 1-based.
	if len(streams) != 3 {
		t.Fatalf("len(streams) = %d, want 3 (webm excluded)", len(streams))
	}
	wantOrder := []string{"137", "136", "18"}
	for i, want := range wantOrder {
		if streams[i].FormatID != want {
			t.Errorf("streams[%d].FormatID = %q, want %q", i, streams[i].FormatID, want)
		}
		if streams[i].Index != i+1 {
			t.Errorf("streams[%d].Index = %d, want %d", i, streams[i].Index, i+1)
		}
		if streams[i].Kind != domain.MediaVideo {
			t.Errorf("streams[%d].Kind = %q, want video", i, streams[i].Kind)
		}
	}

	if streams[0].Progressive {
		t.Error("1080p rendition marked progressive, has no audio codec")
	}
	if !streams[2].Progressive {
		t.Error("360p rendition not marked progressive, has audio codec")
	}
	if streams[0].Resolution != "1080p" {
		t.Errorf("Resolution = %q, want 1080p", streams[0].Resolution)
	}
	if streams[0].SizeBytes != 50000000 {
		t.Errorf("SizeBytes = %d, want filesize_approx fallback", streams[0].SizeBytes)
	}
}

func TestAudioStreams(t *testing.T) {
	c := New(fakeYTDLP(t), 0)

	streams, err := c.AudioStreams(context.Background(), "https://youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("AudioStreams() error = %v", err)
	}

	if len(streams) != 2 {
		t.Fatalf("len(streams) = %d, want 2", len(streams))
	}
	// Descending bitrate.
	if streams[0].FormatID != "140" || streams[1].FormatID != "139" {
		t.Errorf("order = [%s %s], want [140 139]", streams[0].FormatID, streams[1].FormatID)
	}
	if streams[0].BitrateKbps != 129 {
		t.Errorf("BitrateKbps = %d, want 129", streams[0].BitrateKbps)
	}
	if streams[0].Index != 1 || streams[1].Index != 2 {
		t.Errorf("indexes = [%d %d], want [1 2]", streams[0].Index, streams[1].Index)
	}
}

func TestFetchStream(t *testing.T) {
	bin := fakeYTDLP(t)
	c := New(bin, 0)

	dest := filepath.Join(t.TempDir(), "video.mp4")
	if err := c.FetchStream(context.Background(), "https://youtube.com/watch?v=x", "137", dest); err != nil {
		t.Fatalf("FetchStream() error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("dest not created: %v", err)
	}

	args := recordedArgs(t, bin)
	for _, want := range []string{"-f 137", "--no-playlist"} {
		if !strings.Contains(args, want) {
			t.Errorf("args = %q, missing %q", args, want)
		}
	}
}

func TestFetchBest(t *testing.T) {
	bin := fakeYTDLP(t)
	c := New(bin, 0)

	dest := filepath.Join(t.TempDir(), "video.mp4")
	if err := c.FetchBest(context.Background(), "https://tiktok.com/@u/video/1", dest); err != nil {
		t.Fatalf("FetchBest() error = %v", err)
	}

	if args := recordedArgs(t, bin); !strings.Contains(args, "-f mp4") {
		t.Errorf("args = %q, missing -f mp4", args)
	}
}

func TestDumpFailure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\necho 'ERROR: video unavailable' >&2\nexit 1\n"
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	c := New(bin, 0)
	_, err := c.VideoStreams(context.Background(), "https://youtube.com/watch?v=gone")
	if err == nil {
		t.Fatal("VideoStreams() = nil error for failing binary")
	}
	if !strings.Contains(err.Error(), "video unavailable") {
		t.Errorf("error = %v, want captured stderr", err)
	}
}
