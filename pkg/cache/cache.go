// Package cache stores analysis reports and rendered artifacts by content
// hash.
//
// Keys are derived from a hash of the story's fragments plus the options
// that influence the result, so an unchanged story is never analyzed or
// rendered twice. The CLI uses [FileCache] under the XDG cache directory;
// the HTTP server can share results between instances through [RedisCache].
// [NullCache] disables caching.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored data and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Default TTLs for cached results.
const (
	ReportTTL   = 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// ReportKeyOpts are the options that change an analysis report.
type ReportKeyOpts struct {
	Entry        string `json:"entry,omitempty"`
	DedupeCycles bool   `json:"dedupe_cycles,omitempty"`
	MaxPaths     int    `json:"max_paths,omitempty"`
	MaxCycles    int    `json:"max_cycles,omitempty"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format    string  `json:"format"`
	Direction string  `json:"direction,omitempty"`
	Highlight bool    `json:"highlight,omitempty"`
	Detailed  bool    `json:"detailed,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Entry     string  `json:"entry,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ReportKey identifies an analysis report ("validate", "analyze", ...)
	// of the story with the given hash.
	ReportKey(storyHash, kind string, opts ReportKeyOpts) string
	// ArtifactKey identifies a rendered graph of the story.
	ArtifactKey(storyHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer builds keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ReportKey implements [Keyer].
func (DefaultKeyer) ReportKey(storyHash, kind string, opts ReportKeyOpts) string {
	return hashKey("report:"+kind, storyHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(storyHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", storyHash, opts)
}
