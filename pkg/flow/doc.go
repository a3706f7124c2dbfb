// Package flow validates and analyzes the decision graph of a story.
//
// # Overview
//
// Every function in this package takes the fragment collection as a plain
// slice and returns a freshly built report. Nothing is cached between calls
// and the input is never modified, so the same slice may be analyzed from
// several goroutines at once (for example by the HTTP server and a file
// watcher reacting to the same edit).
//
// The graph is implicit: each [story.Fragment] is a node and each decision
// with a non-empty NextFragment is an edge. Analysis starts from the entry
// point chosen by [story.EntryPoint] unless [WithEntry] names another one.
//
// # Analyses
//
//   - [Reachability]: which fragments a reader can reach from the entry point
//   - [DetectCycles]: every circular chain of decisions, found from every
//     fragment as a candidate start
//   - [Validate]: defects as structured [Issue] values, split into errors
//     and warnings, with category counts
//   - [EnumeratePaths]: every complete reading from the entry point to a
//     terminal fragment
//   - [Analyze]: all of the above plus distribution statistics in one
//     [FlowReport]
//
// # Traversal
//
// All traversals use an explicit stack, so a story with hundreds of
// thousands of fragments cannot exhaust the goroutine stack. Path-sensitive
// walks (cycles and paths) give every branch its own copy of the current
// path. Their output can still grow exponentially on dense graphs, so they
// are bounded by [WithMaxPaths], [WithMaxCycles] and [WithMaxSteps]; hitting
// a bound sets the Truncated flag of the result instead of failing.
//
// # Duplicate Cycles
//
// A cycle is reported once for every candidate start that reaches it, so the
// two-fragment loop A → B → A typically shows up as both "A → B → A" and
// "B → A → B". [DedupeCycles] collapses rotations of the same cycle when a
// caller wants one report per loop.
package flow
