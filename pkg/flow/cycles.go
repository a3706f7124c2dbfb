package flow

import (
	"slices"
	"strings"

	"github.com/matzehuels/storyflow/pkg/story"
)

// Arrow separates fragment IDs in rendered cycles and paths.
const Arrow = " → "

// Cycle is a closed chain of decisions. Path runs from the first fragment of
// the loop to the last one before the decision that leads back to Path[0].
type Cycle struct {
	Path []string `json:"path"`
}

// String renders the cycle with the first ID repeated at the end, as in
// "a → b → a".
func (c Cycle) String() string {
	if len(c.Path) == 0 {
		return ""
	}
	return strings.Join(c.Path, Arrow) + Arrow + c.Path[0]
}

// Contains reports whether id is part of the loop.
func (c Cycle) Contains(id string) bool { return slices.Contains(c.Path, id) }

// canonical returns the rotation of the path that starts at its smallest ID.
func (c Cycle) canonical() string {
	if len(c.Path) == 0 {
		return ""
	}
	start := 0
	for i, id := range c.Path {
		if id < c.Path[start] {
			start = i
		}
	}
	rotated := append(slices.Clone(c.Path[start:]), c.Path[:start]...)
	return strings.Join(rotated, "\x00")
}

// CycleSet is the result of [FindCycles].
type CycleSet struct {
	Cycles []Cycle `json:"cycles"`
	// Truncated is set when the cycle or step bound stopped the search early.
	Truncated bool `json:"truncated"`
}

// DetectCycles returns every cycle found by [FindCycles].
func DetectCycles(fragments []story.Fragment, opts ...Option) []Cycle {
	return FindCycles(fragments, opts...).Cycles
}

// FindCycles runs a path-sensitive depth-first walk from every fragment in
// collection order. Whenever a walk reaches a fragment already on its
// current path, the loop from that fragment's first occurrence onward is
// recorded. Each branch carries its own copy of the path, so loops reachable
// from several starts are reported once per start.
func FindCycles(fragments []story.Fragment, opts ...Option) CycleSet {
	c := newConfig(opts)
	return findCycles(newGraph(fragments, c), c)
}

type frame struct {
	id   string
	path []string
}

func findCycles(g graph, c config) CycleSet {
	set := CycleSet{Cycles: []Cycle{}}
	steps := 0

	for _, start := range g.fragments {
		stack := []frame{{id: start.ID}}
		for len(stack) > 0 {
			if len(set.Cycles) >= c.maxCycles || steps >= c.maxSteps {
				set.Truncated = true
				return set
			}
			steps++

			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if i := slices.Index(top.path, top.id); i >= 0 {
				set.Cycles = append(set.Cycles, Cycle{Path: slices.Clone(top.path[i:])})
				continue
			}

			f, ok := g.lookup(top.id)
			if !ok {
				continue
			}
			path := append(slices.Clip(top.path), top.id)
			targets := f.Targets()
			for i := len(targets) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: targets[i], path: path})
			}
		}
	}
	return set
}

// DedupeCycles drops cycles that are rotations of an earlier one, keeping
// the first occurrence of each loop.
func DedupeCycles(cycles []Cycle) []Cycle {
	seen := make(map[string]bool, len(cycles))
	out := make([]Cycle, 0, len(cycles))
	for _, cy := range cycles {
		key := cy.canonical()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cy)
	}
	return out
}
