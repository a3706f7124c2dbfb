package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCache keeps reports and artifacts as JSON envelopes on disk, one file
// per key, fanned out over 256 subdirectories by the first byte of the key
// digest. It backs the CLI and single-process servers.
type FileCache struct {
	root string
}

// NewFileCache opens (and creates if needed) a cache rooted at dir.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{root: dir}, nil
}

type envelope struct {
	Payload []byte    `json:"data"`
	Expiry  time.Time `json:"expires_at"`
}

func (e envelope) expired(now time.Time) bool {
	return !e.Expiry.IsZero() && now.After(e.Expiry)
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	file := c.locate(key)
	raw, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	var env envelope
	if json.Unmarshal(raw, &env) != nil || env.expired(time.Now()) {
		// Corrupt and stale entries are evicted on read.
		_ = os.Remove(file)
		return nil, false, nil
	}
	return env.Payload, true, nil
}

// Set writes through a temp file and renames it into place so concurrent
// readers never observe a half-written entry.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	env := envelope{Payload: data}
	if ttl > 0 {
		env.Expiry = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	file := c.locate(key)
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), file)
}

func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.locate(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *FileCache) Close() error { return nil }

func (c *FileCache) locate(key string) string {
	digest := Hash([]byte(key))
	return filepath.Join(c.root, digest[:2], digest[2:]+".json")
}

var _ Cache = (*FileCache)(nil)
