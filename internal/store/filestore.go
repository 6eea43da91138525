package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

// accessTimeout bounds best-effort access bookkeeping so a slow sink
// cannot stall a download response.
const accessTimeout = 5 * time.Second

// FileStore owns published artifacts: it names them by opaque id, tracks
// them in the Registry and serves resolution for the redemption surface.
// After Publish nothing else holds a reference to the file.
type FileStore struct {
	dir  string
	reg  *Registry
	sink domain.EventSink
}

// NewFileStore creates the store directory if needed. sink may be nil.
func NewFileStore(dir string, reg *Registry, sink domain.EventSink) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, reg: reg, sink: sink}, nil
}

// Dir returns the public store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// StagingDir returns the scratch/staging directory next to the store.
// Staged files land here so Publish is a same-filesystem rename.
func (s *FileStore) StagingDir() (string, error) {
	dir := filepath.Join(s.dir, "staging")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

// Publish assigns a fresh id, moves the file into the store under
// `<id><ext>` and persists the registry entry before returning.
// Collisions are impossible by construction: ids carry 128 bits of
// randomness.
func (s *FileStore) Publish(localPath string, kind domain.MediaKind) (string, error) {
	id := uuid.NewString()
	dst := filepath.Join(s.dir, id+kind.Ext())

	if err := moveFile(localPath, dst); err != nil {
		return "", fmt.Errorf("move into store: %w", err)
	}
	if err := s.reg.Insert(id, time.Now()); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("register artifact: %w", err)
	}

	logrus.WithFields(logrus.Fields{"id": id, "kind": kind}).Info("artifact published")
	return id, nil
}

// Resolve checks both media-kind suffixes for id and returns whichever
// exists on disk.
func (s *FileStore) Resolve(id string) (string, domain.MediaKind, bool) {
	for _, kind := range []domain.MediaKind{domain.MediaVideo, domain.MediaAudio} {
		path := filepath.Join(s.dir, id+kind.Ext())
		if _, err := os.Stat(path); err == nil {
			return path, kind, true
		}
	}
	return "", "", false
}

// RecordAccess notes a redemption. Failures are swallowed: redemption
// must never fail because bookkeeping failed.
func (s *FileStore) RecordAccess(id string) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), accessTimeout)
	defer cancel()
	if err := s.sink.RecordAccess(ctx, id); err != nil {
		logrus.WithError(err).WithField("id", id).Warn("failed to record access")
	}
}

// moveFile renames src to dst, falling back to copy+delete across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
