package flow

import (
	"slices"

	"github.com/matzehuels/storyflow/pkg/story"
)

// ReachabilityReport partitions the fragment IDs of a collection into those
// a reader can reach from the entry point and those they cannot.
type ReachabilityReport struct {
	// Entry is the fragment the traversal started from, empty for an empty
	// collection.
	Entry string `json:"entry"`
	// Reachable lists reachable IDs in depth-first visit order.
	Reachable []string `json:"reachable"`
	// Unreachable lists the remaining IDs in collection order. A duplicated
	// ID is listed once per fragment carrying it.
	Unreachable []string `json:"unreachable"`
}

// IsReachable reports whether id was visited.
func (r ReachabilityReport) IsReachable(id string) bool {
	return slices.Contains(r.Reachable, id)
}

// Reachability walks the decision graph depth-first from the entry point.
// Decisions pointing at missing fragments are not followed and a visited
// fragment is never expanded twice, so cycles are harmless.
func Reachability(fragments []story.Fragment, opts ...Option) ReachabilityReport {
	return reachability(newGraph(fragments, newConfig(opts)))
}

func reachability(g graph) ReachabilityReport {
	report := ReachabilityReport{
		Entry:       g.entry,
		Reachable:   []string{},
		Unreachable: []string{},
	}
	if !g.hasEntry {
		return report
	}

	visited := make(map[string]bool, len(g.fragments))
	stack := []string{g.entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		report.Reachable = append(report.Reachable, id)

		f, _ := g.lookup(id)
		targets := f.Targets()
		// Reverse push keeps decision order in the visit order.
		for i := len(targets) - 1; i >= 0; i-- {
			if t := targets[i]; g.exists(t) && !visited[t] {
				stack = append(stack, t)
			}
		}
	}

	for _, f := range g.fragments {
		if !visited[f.ID] {
			report.Unreachable = append(report.Unreachable, f.ID)
		}
	}
	return report
}
