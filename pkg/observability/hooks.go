// Package observability lets binaries attach metrics or tracing to storyflow
// without the libraries importing a backend.
//
// Library code (pkg/pipeline, pkg/cache users, internal/server) reports
// events through the package-level accessors:
//
//	observability.Pipeline().OnAnalyzeStart(ctx, "validate", len(s.Fragments))
//	observability.Cache().OnCacheHit(ctx, "report")
//
// The defaults discard everything. A binary installs real hooks once at
// startup, before any work is done; internal/server does this with its
// Prometheus collectors.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks observes story loading, analysis and rendering. kind names
// the analysis ("validate", "analyze", "reachability", "cycles", "paths",
// "simulate").
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, fragments int, duration time.Duration, err error)
	OnAnalyzeStart(ctx context.Context, kind string, fragments int)
	OnAnalyzeComplete(ctx context.Context, kind string, issues int, duration time.Duration, err error)
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks observes report and artifact cache traffic. keyType is
// "report" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes the API server. route is the chi route pattern so
// label cardinality stays bounded.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, route string, code string)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                                 {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)    {}
func (NoopPipelineHooks) OnAnalyzeStart(context.Context, string, int)                         {}
func (NoopPipelineHooks) OnAnalyzeComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                             {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)    {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string)                {}

type registry struct {
	mu       sync.RWMutex
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var hooks = newRegistry()

func newRegistry() *registry {
	return &registry{
		pipeline: NoopPipelineHooks{},
		cache:    NoopCacheHooks{},
		http:     NoopHTTPHooks{},
	}
}

// set runs fn under the write lock.
func (r *registry) set(fn func()) {
	r.mu.Lock()
	fn()
	r.mu.Unlock()
}

// SetPipelineHooks installs h. A nil h keeps the current hooks.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		hooks.set(func() { hooks.pipeline = h })
	}
}

// SetCacheHooks installs h. A nil h keeps the current hooks.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		hooks.set(func() { hooks.cache = h })
	}
}

// SetHTTPHooks installs h. A nil h keeps the current hooks.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		hooks.set(func() { hooks.http = h })
	}
}

func Pipeline() PipelineHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.pipeline
}

func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset puts the no-op hooks back. Tests that start a server call it in
// cleanup.
func Reset() {
	fresh := newRegistry()
	hooks.set(func() {
		hooks.pipeline, hooks.cache, hooks.http = fresh.pipeline, fresh.cache, fresh.http
	})
}
