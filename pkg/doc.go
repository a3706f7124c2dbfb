// Package pkg holds the storyflow libraries.
//
// Storyflow checks branching narratives: stories made of fragments (scenes)
// joined by decisions (labelled edges). The packages are layered:
//
//   - [story] - the fragment/decision model and editor helpers
//   - [io] - JSON, TOML and YAML story documents
//   - [flow] - validation, reachability, cycles, path enumeration, statistics
//   - [simulate] - replaying paths against a reader's besitos and role
//   - [render] - Graphviz node-link diagrams as SVG, PNG, PDF or DOT
//   - [cache] - report and artifact caching (file, Redis, none)
//   - [pipeline] - load → validate → analyze → render with caching
//   - [watch] - re-running a callback when a story file is saved
//   - [observability] - hooks for metrics and tracing
//   - [errors] - coded errors shared by the CLI and HTTP API
//
// # Quick Start
//
//	s, err := io.Import("story.json")
//	if err != nil {
//	    return err
//	}
//	res := flow.Validate(s.Fragments)
//	for _, issue := range res.Errors {
//	    fmt.Println(issue.Message)
//	}
//	stats := flow.EnumeratePaths(s.Fragments)
//	fmt.Println(stats.TotalPaths, "paths")
package pkg
