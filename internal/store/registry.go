package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Registry is the durable id -> created_at map behind the file store.
// One coarse lock covers the in-memory map and its persistence; every
// mutation rewrites the whole file, which stays cheap at this scale.
//
// On-disk layout is one `id,created_at_epoch_seconds` line per entry,
// rewritten atomically via a temp file rename.
type Registry struct {
	mu      sync.Mutex
	path    string
	entries map[string]time.Time
}

// LoadRegistry reads the registry file at path, creating an empty
// registry if the file does not exist yet.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		entries: make(map[string]time.Time),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, tsStr, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("malformed registry line %q", line)
		}
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed registry timestamp %q: %w", tsStr, err)
		}
		r.entries[id] = time.Unix(ts, 0)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return r, nil
}

// Insert adds an entry and persists before returning, so a crash after
// Insert cannot lose the entry while the file exists unreferenced.
func (r *Registry) Insert(id string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = createdAt
	if err := r.persistLocked(); err != nil {
		delete(r.entries, id)
		return err
	}
	return nil
}

// DeleteBatch removes the given ids and persists once for the whole
// batch. Unknown ids are ignored.
func (r *Registry) DeleteBatch(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.entries, id)
	}
	return r.persistLocked()
}

// Snapshot returns a copy of the current entries. Holding the lock only
// for the copy keeps the sweeper from blocking publishes.
func (r *Registry) Snapshot() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Time, len(r.entries))
	for id, ts := range r.entries {
		out[id] = ts
	}
	return out
}

// Contains reports whether id is currently registered.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("create registry temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for id, ts := range r.entries {
		if _, err := fmt.Fprintf(w, "%s,%d\n", id, ts.Unix()); err != nil {
			tmp.Close()
			return fmt.Errorf("write registry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}
