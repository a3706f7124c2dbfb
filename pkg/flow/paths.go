package flow

import (
	"slices"
	"strings"

	"github.com/matzehuels/storyflow/pkg/story"
)

// PathStats describes the complete readings of a story. A path is the list
// of fragment IDs from the entry point to a terminal fragment.
type PathStats struct {
	TotalPaths        int     `json:"total_paths"`
	AveragePathLength float64 `json:"average_path_length"`
	// LongestPath and ShortestPath are measured in fragments. Ties go to the
	// path found first.
	LongestPath  []string   `json:"longest_path"`
	ShortestPath []string   `json:"shortest_path"`
	Paths        [][]string `json:"paths"`
	// Truncated is set when the path or step bound stopped enumeration.
	Truncated bool `json:"truncated"`
}

// FormatPath joins ids with [Arrow].
func FormatPath(ids []string) string { return strings.Join(ids, Arrow) }

// EnumeratePaths lists every path from the entry point to a fragment without
// decisions, in depth-first order following decisions left to right.
//
// A branch ends without being recorded when its next target is missing or
// already on the current path; loops are reported by [DetectCycles], not
// here.
func EnumeratePaths(fragments []story.Fragment, opts ...Option) PathStats {
	c := newConfig(opts)
	return enumeratePaths(newGraph(fragments, c), c)
}

func enumeratePaths(g graph, c config) PathStats {
	stats := PathStats{
		LongestPath:  []string{},
		ShortestPath: []string{},
		Paths:        [][]string{},
	}
	if !g.hasEntry {
		return stats
	}

	steps := 0
	stack := []frame{{id: g.entry}}
	for len(stack) > 0 {
		if len(stats.Paths) >= c.maxPaths || steps >= c.maxSteps {
			stats.Truncated = true
			break
		}
		steps++

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if slices.Contains(top.path, top.id) {
			continue
		}
		f, ok := g.lookup(top.id)
		if !ok {
			continue
		}

		path := append(slices.Clip(top.path), top.id)
		if f.IsTerminal() {
			stats.Paths = append(stats.Paths, path)
			continue
		}
		targets := f.Targets()
		for i := len(targets) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: targets[i], path: path})
		}
	}

	stats.TotalPaths = len(stats.Paths)
	if stats.TotalPaths == 0 {
		return stats
	}

	total := 0
	longest, shortest := stats.Paths[0], stats.Paths[0]
	for _, p := range stats.Paths {
		total += len(p)
		if len(p) > len(longest) {
			longest = p
		}
		if len(p) < len(shortest) {
			shortest = p
		}
	}
	stats.AveragePathLength = float64(total) / float64(stats.TotalPaths)
	stats.LongestPath = slices.Clone(longest)
	stats.ShortestPath = slices.Clone(shortest)
	return stats
}
