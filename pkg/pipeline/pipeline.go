// Package pipeline provides the load → analyze → render pipeline for storyflow.
//
// The CLI and the HTTP server both go through a [Runner], so caching,
// logging and observability hooks behave identically regardless of the
// entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a story document from disk or a request body (JSON, TOML, YAML)
//  2. Analyze: validation, flow statistics, reachability, cycles and paths
//  3. Render: node-link diagrams in SVG, PNG, PDF or DOT
//
// Analysis reports and rendered artifacts are cached by a hash of the
// story's fragments plus the options that influence the result.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	s, err := runner.Load(ctx, "story.json")
//	if err != nil {
//	    return err
//	}
//	res, _, err := runner.Validate(ctx, s, pipeline.Options{})
//
// Or run everything at once:
//
//	result, err := runner.Execute(ctx, "story.json", pipeline.Options{Formats: []string{"svg"}})
package pipeline

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyflow/pkg/cache"
	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/render"
	"github.com/matzehuels/storyflow/pkg/story"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultDirection is the default Graphviz rank direction.
	DefaultDirection = "TB"

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// Report kinds, used for cache keys, hooks and log lines.
const (
	KindValidate     = "validate"
	KindAnalyze      = "analyze"
	KindReachability = "reachability"
	KindCycles       = "cycles"
	KindPaths        = "paths"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Analysis options
	Entry        string `json:"entry,omitempty"` // overrides the story's own entry
	DedupeCycles bool   `json:"dedupe_cycles,omitempty"`
	MaxPaths     int    `json:"max_paths,omitempty"`
	MaxCycles    int    `json:"max_cycles,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Highlight bool     `json:"highlight,omitempty"`
	Detailed  bool     `json:"detailed,omitempty"`
	Scale     float64  `json:"scale,omitempty"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Logger, when set, replaces the runner's logger for this call. The
	// server passes a logger carrying the request ID.
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a full pipeline run.
type Result struct {
	// Story is the loaded document.
	Story *story.Story

	// StoryHash is the content hash of the story's fragments.
	StoryHash string

	Validation flow.ValidationResult
	Report     flow.FlowReport

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Fragments   int
	LoadTime    time.Duration
	AnalyzeTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ValidateHit bool
	AnalyzeHit  bool
	RenderHit   bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks option values and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxPaths < 0 || o.MaxCycles < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "limits must not be negative")
	}
	if err := o.validateRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

func (o *Options) validateRender() error {
	o.Formats = slices.Clone(o.Formats)
	for i, f := range o.Formats {
		if err := apperrors.ValidateFormat(f, render.Formats...); err != nil {
			return err
		}
		o.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	seen := make(map[string]bool, len(o.Formats))
	o.Formats = slices.DeleteFunc(o.Formats, func(f string) bool {
		dup := seen[f]
		seen[f] = true
		return dup
	})

	o.Direction = strings.ToUpper(o.Direction)
	switch o.Direction {
	case "":
		o.Direction = DefaultDirection
	case "TB", "LR":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid direction %q (must be TB or LR)", o.Direction)
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "scale must be positive")
	}
	return nil
}

// logger picks the per-call logger over the runner's.
func (o *Options) logger(fallback *log.Logger) *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return fallback
}

// entry resolves the effective entry: an explicit option wins over the
// story document's own entry field.
func (o *Options) entry(s *story.Story) string {
	if o.Entry != "" {
		return o.Entry
	}
	return s.Entry
}

// FlowOptions returns the [flow.Option] list for analysing s.
func (o *Options) FlowOptions(s *story.Story) []flow.Option {
	return []flow.Option{
		flow.WithEntry(o.entry(s)),
		flow.WithMaxPaths(o.MaxPaths),
		flow.WithMaxCycles(o.MaxCycles),
	}
}

// ReportKeyOpts returns cache key options for analysis reports.
func (o *Options) ReportKeyOpts(s *story.Story) cache.ReportKeyOpts {
	return cache.ReportKeyOpts{
		Entry:        o.entry(s),
		DedupeCycles: o.DedupeCycles,
		MaxPaths:     o.MaxPaths,
		MaxCycles:    o.MaxCycles,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(s *story.Story, format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:    format,
		Direction: o.Direction,
		Highlight: o.Highlight,
		Detailed:  o.Detailed,
		Scale:     o.Scale,
		Entry:     o.entry(s),
	}
}

// StoryHash returns the content hash of the story's fragments. Title and
// description do not influence analysis and are left out.
func StoryHash(s *story.Story) string {
	data, err := json.Marshal(s.Fragments)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
