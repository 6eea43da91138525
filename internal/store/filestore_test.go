package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

func setupStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	reg, err := LoadRegistry(filepath.Join(dir, "registry.txt"))
	if err != nil {
		t.Fatal(err)
	}
	fs, err := NewFileStore(filepath.Join(dir, "store"), reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func stageFile(t *testing.T, fs *FileStore, name, content string) string {
	t.Helper()
	staging, err := fs.StagingDir()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(staging, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileStorePublishResolve(t *testing.T) {
	fs := setupStore(t)
	staged := stageFile(t, fs, "in.mp4", "video bytes")

	id, err := fs.Publish(staged, domain.MediaVideo)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// The staged file was moved, not copied.
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file still exists after publish")
	}

	path, kind, ok := fs.Resolve(id)
	if !ok {
		t.Fatal("Resolve() = false immediately after publish")
	}
	if kind != domain.MediaVideo {
		t.Errorf("Resolve() kind = %q, want video", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("published file unreadable: %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("published content = %q, want original bytes", data)
	}

	if !fs.reg.Contains(id) {
		t.Error("published id missing from registry")
	}
}

func TestFileStorePublishAudio(t *testing.T) {
	fs := setupStore(t)
	staged := stageFile(t, fs, "in.mp3", "audio bytes")

	id, err := fs.Publish(staged, domain.MediaAudio)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	_, kind, ok := fs.Resolve(id)
	if !ok || kind != domain.MediaAudio {
		t.Errorf("Resolve() = (%v, %q), want audio artifact", ok, kind)
	}
}

func TestFileStoreResolveUnknown(t *testing.T) {
	fs := setupStore(t)
	if _, _, ok := fs.Resolve("never-published"); ok {
		t.Error("Resolve() = true for an id never published")
	}
}

func TestFileStoreConcurrentPublish(t *testing.T) {
	fs := setupStore(t)
	const n = 20

	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		staged := stageFile(t, fs, fmt.Sprintf("in-%d.mp4", i), "x")
		wg.Add(1)
		go func(i int, staged string) {
			defer wg.Done()
			ids[i], errs[i] = fs.Publish(staged, domain.MediaVideo)
		}(i, staged)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Publish() #%d error = %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate artifact id %q", ids[i])
		}
		seen[ids[i]] = true
	}
	if fs.reg.Len() != n {
		t.Errorf("registry Len() = %d, want %d", fs.reg.Len(), n)
	}
}

type failingSink struct{}

func (failingSink) RecordAttempt(ctx context.Context, rec domain.AttemptRecord) error {
	return errors.New("sink down")
}

func (failingSink) RecordAccess(ctx context.Context, id string) error {
	return errors.New("sink down")
}

func TestFileStoreRecordAccessSwallowsErrors(t *testing.T) {
	dir := t.TempDir()
	reg, _ := LoadRegistry(filepath.Join(dir, "registry.txt"))
	fs, err := NewFileStore(filepath.Join(dir, "store"), reg, failingSink{})
	if err != nil {
		t.Fatal(err)
	}

	// Must not panic or surface the sink failure.
	fs.RecordAccess("some-id")
}
