package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyflow/pkg/cache"
	"github.com/matzehuels/storyflow/pkg/flow"
	pkgio "github.com/matzehuels/storyflow/pkg/io"
	"github.com/matzehuels/storyflow/pkg/observability"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides cache.ReportTTL and cache.ArtifactTTL when positive.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs load → validate → analyze → render. The render stage is
// skipped when opts.Formats is empty.
func (r *Runner) Execute(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	loadStart := time.Now()
	s, err := r.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Story = s
	result.StoryHash = StoryHash(s)
	result.Stats.Fragments = len(s.Fragments)
	result.Stats.LoadTime = time.Since(loadStart)

	// Stage 2: Analyze
	analyzeStart := time.Now()
	result.Validation, result.CacheInfo.ValidateHit, err = r.Validate(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	result.Report, result.CacheInfo.AnalyzeHit, err = r.Analyze(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result.Stats.AnalyzeTime = time.Since(analyzeStart)

	// Stage 3: Render
	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		result.Artifacts, result.CacheInfo.RenderHit, err = r.Render(ctx, s, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Stats.RenderTime = time.Since(renderStart)
	}
	return result, nil
}

// Load imports a story document from path. The format is chosen by file
// extension.
func (r *Runner) Load(ctx context.Context, path string) (*story.Story, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, path)
	start := time.Now()

	s, err := pkgio.Import(path)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, path, len(s.Fragments), time.Since(start), nil)
	r.Logger.Info("loaded story",
		"path", path,
		"fragments", len(s.Fragments),
		"duration", time.Since(start))
	return s, nil
}

// Decode reads a story document from rd. Source names the input in hooks
// and logs (e.g. "request").
func (r *Runner) Decode(ctx context.Context, source string, rd io.Reader, format pkgio.Format) (*story.Story, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	s, err := pkgio.Read(rd, format)
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, source, len(s.Fragments), time.Since(start), nil)
	r.Logger.Debug("decoded story", "source", source, "fragments", len(s.Fragments))
	return s, nil
}

// Validate runs the connectivity validator with caching. The bool reports
// a cache hit.
func (r *Runner) Validate(ctx context.Context, s *story.Story, opts Options) (flow.ValidationResult, bool, error) {
	res, hit, err := cachedReport(ctx, r, s, KindValidate, &opts,
		func(v flow.ValidationResult) int { return len(v.Errors) + len(v.Warnings) },
		func(fo []flow.Option) flow.ValidationResult {
			v := flow.Validate(s.Fragments, fo...)
			if opts.DedupeCycles {
				v = dedupeCycleIssues(v)
			}
			return v
		})
	if err == nil {
		opts.logger(r.Logger).Info("validated story",
			"fragments", res.Stats.TotalFragments,
			"errors", len(res.Errors),
			"warnings", len(res.Warnings),
			"cached", hit)
	}
	return res, hit, err
}

// Analyze computes the flow report with caching.
func (r *Runner) Analyze(ctx context.Context, s *story.Story, opts Options) (flow.FlowReport, bool, error) {
	res, hit, err := cachedReport(ctx, r, s, KindAnalyze, &opts,
		func(v flow.FlowReport) int { return len(v.Reachability.Unreachable) },
		func(fo []flow.Option) flow.FlowReport { return flow.Analyze(s.Fragments, fo...) })
	if err == nil {
		opts.logger(r.Logger).Info("analyzed story",
			"fragments", res.TotalFragments,
			"paths", res.Paths.TotalPaths,
			"cached", hit)
	}
	return res, hit, err
}

// Reachability computes the reachability report with caching.
func (r *Runner) Reachability(ctx context.Context, s *story.Story, opts Options) (flow.ReachabilityReport, bool, error) {
	return cachedReport(ctx, r, s, KindReachability, &opts,
		func(v flow.ReachabilityReport) int { return len(v.Unreachable) },
		func(fo []flow.Option) flow.ReachabilityReport { return flow.Reachability(s.Fragments, fo...) })
}

// Cycles detects cycles with caching, collapsing rotations when
// opts.DedupeCycles is set.
func (r *Runner) Cycles(ctx context.Context, s *story.Story, opts Options) (flow.CycleSet, bool, error) {
	return cachedReport(ctx, r, s, KindCycles, &opts,
		func(v flow.CycleSet) int { return len(v.Cycles) },
		func(fo []flow.Option) flow.CycleSet {
			set := flow.FindCycles(s.Fragments, fo...)
			if opts.DedupeCycles {
				set.Cycles = flow.DedupeCycles(set.Cycles)
			}
			return set
		})
}

// Paths enumerates entry-to-terminal paths with caching.
func (r *Runner) Paths(ctx context.Context, s *story.Story, opts Options) (flow.PathStats, bool, error) {
	return cachedReport(ctx, r, s, KindPaths, &opts,
		func(v flow.PathStats) int { return v.TotalPaths },
		func(fo []flow.Option) flow.PathStats { return flow.EnumeratePaths(s.Fragments, fo...) })
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// cachedReport looks up a JSON-encoded report under the story's hash and
// computes and stores it on a miss. Undecodable cache entries are
// recomputed.
func cachedReport[T any](ctx context.Context, r *Runner, s *story.Story, kind string, opts *Options,
	issues func(T) int, compute func([]flow.Option) T) (T, bool, error) {
	var zero T
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return zero, false, err
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	key := r.Keyer.ReportKey(StoryHash(s), kind, opts.ReportKeyOpts(s))
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "report")
				return cached, true, nil
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "report")

	hooks := observability.Pipeline()
	hooks.OnAnalyzeStart(ctx, kind, len(s.Fragments))
	start := time.Now()
	v := compute(opts.FlowOptions(s))
	dur := time.Since(start)
	hooks.OnAnalyzeComplete(ctx, kind, issues(v), dur, nil)
	logger := opts.logger(r.Logger)
	logger.Debug("computed report", "kind", kind, "duration", dur)

	if data, err := json.Marshal(v); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.ReportTTL)); err != nil {
			logger.Warn("cache write failed", "kind", kind, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "report", len(data))
		}
	}
	return v, false, nil
}

// dedupeCycleIssues keeps one circular_reference error per distinct cycle.
func dedupeCycleIssues(v flow.ValidationResult) flow.ValidationResult {
	var cycles []flow.Cycle
	for _, e := range v.Errors {
		if e.Category == flow.CategoryCircularRef && e.Cycle != nil {
			cycles = append(cycles, *e.Cycle)
		}
	}
	keep := make(map[string]bool)
	for _, c := range flow.DedupeCycles(cycles) {
		keep[c.String()] = true
	}

	errs := make([]flow.Issue, 0, len(v.Errors))
	for _, e := range v.Errors {
		if e.Category == flow.CategoryCircularRef && e.Cycle != nil {
			if !keep[e.Cycle.String()] {
				continue
			}
			delete(keep, e.Cycle.String())
		}
		errs = append(errs, e)
	}
	v.Errors = errs
	v.Stats.CircularReferences = len(flow.DedupeCycles(cycles))
	return v
}
