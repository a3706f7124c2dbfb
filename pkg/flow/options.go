package flow

import "github.com/matzehuels/storyflow/pkg/story"

const (
	// DefaultMaxPaths bounds the number of complete paths recorded by
	// [EnumeratePaths].
	DefaultMaxPaths = 100_000

	// DefaultMaxCycles bounds the number of cycles recorded by [DetectCycles].
	DefaultMaxCycles = 10_000

	// DefaultMaxSteps bounds the number of stack frames a single
	// path-sensitive traversal may expand.
	DefaultMaxSteps = 5_000_000
)

// Option configures an analysis call.
type Option func(*config)

type config struct {
	entry     string
	maxPaths  int
	maxCycles int
	maxSteps  int
}

// WithEntry names the entry fragment explicitly. It is ignored when empty or
// when no fragment has that ID, in which case the "start" rule applies.
func WithEntry(id string) Option {
	return func(c *config) { c.entry = id }
}

// WithMaxPaths overrides [DefaultMaxPaths]. Non-positive values are ignored.
func WithMaxPaths(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPaths = n
		}
	}
}

// WithMaxCycles overrides [DefaultMaxCycles]. Non-positive values are ignored.
func WithMaxCycles(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxCycles = n
		}
	}
}

// WithMaxSteps overrides [DefaultMaxSteps]. Non-positive values are ignored.
func WithMaxSteps(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		maxPaths:  DefaultMaxPaths,
		maxCycles: DefaultMaxCycles,
		maxSteps:  DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// graph is a read-only view over a fragment slice with O(1) lookups.
type graph struct {
	fragments []story.Fragment
	index     map[string]int
	entry     string
	hasEntry  bool
}

func newGraph(fragments []story.Fragment, c config) graph {
	entry, ok := story.EntryID(fragments, c.entry)
	return graph{
		fragments: fragments,
		index:     story.Index(fragments),
		entry:     entry,
		hasEntry:  ok,
	}
}

func (g graph) lookup(id string) (story.Fragment, bool) {
	i, ok := g.index[id]
	if !ok {
		return story.Fragment{}, false
	}
	return g.fragments[i], true
}

func (g graph) exists(id string) bool {
	_, ok := g.index[id]
	return ok
}
