package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/storyflow/pkg/cache"
	"github.com/matzehuels/storyflow/pkg/observability"
	"github.com/matzehuels/storyflow/pkg/render"
	"github.com/matzehuels/storyflow/pkg/render/nodelink"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Render generates the story graph in every requested format, defaulting
// to SVG. The bool reports whether all artifacts came from cache.
func (r *Runner) Render(ctx context.Context, s *story.Story, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{render.FormatSVG}
	}
	hash := StoryHash(s)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(s, format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := RenderStory(ctx, s, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(s, format))
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.ArtifactTTL)); err != nil {
			opts.logger(r.Logger).Warn("cache write failed", "format", format, "error", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	opts.logger(r.Logger).Info("rendered story",
		"formats", opts.Formats,
		"duration", time.Since(start))
	return rendered, false, nil
}

// RenderStory renders without caching. The DOT source and SVG are
// produced at most once and shared by the derived formats.
func RenderStory(ctx context.Context, s *story.Story, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(s.Fragments, nodelink.Options{
		Detailed:  opts.Detailed,
		Highlight: opts.Highlight,
		Direction: opts.Direction,
		Entry:     opts.entry(s),
	})

	var svg []byte
	svgOnce := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = nodelink.RenderSVG(ctx, dot)
		return svg, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case render.FormatDOT:
			data = []byte(dot)
		case render.FormatSVG:
			data, err = svgOnce()
		case render.FormatPNG:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPNG(ctx, data, opts.Scale)
			}
		case render.FormatPDF:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPDF(ctx, data)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
