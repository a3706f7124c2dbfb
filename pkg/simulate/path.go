package simulate

import (
	"fmt"
	"slices"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Step is one fragment of a replayed path.
type Step struct {
	FragmentID    string `json:"fragment_id"`
	Index         int    `json:"index"` // 1-based position in the path
	BesitosBefore int    `json:"besitos_before"`
	BesitosAfter  int    `json:"besitos_after"`
	Blocked       bool   `json:"blocked"`
	Reason        string `json:"reason,omitempty"`
	// Choices lists the targets of the fragment's decisions.
	Choices []string `json:"choices"`
}

// PathResult is returned by [SimulatePath].
type PathResult struct {
	// Success is true when every step could be entered.
	Success bool     `json:"success"`
	Path    []string `json:"path"`
	Steps   []Step   `json:"steps"`
	Final   State    `json:"final_state"`
	// Errors lists structural problems (unknown fragments, missing links)
	// found before replaying. When non-empty, Steps is empty.
	Errors []string `json:"errors,omitempty"`
}

// ValidatePath checks that every ID exists and that each fragment has a
// decision leading to the next one.
func ValidatePath(fragments []story.Fragment, path []string) []string {
	idx := story.Index(fragments)
	var errs []string
	for i, id := range path {
		if _, ok := idx[id]; !ok {
			errs = append(errs, fmt.Sprintf("step %d: fragment %q does not exist", i+1, id))
		}
	}
	for i := 0; i+1 < len(path); i++ {
		j, ok := idx[path[i]]
		if !ok {
			continue
		}
		targets := fragments[j].Targets()
		if !slices.Contains(targets, path[i+1]) {
			errs = append(errs, fmt.Sprintf("step %d→%d: %q has no decision leading to %q (choices: %v)",
				i+1, i+2, path[i], path[i+1], targets))
		}
	}
	return errs
}

// SimulatePath replays path starting from state. The first fragment is
// entered for free, like the entry fragment of a [Session]; every later one
// must be enterable. Replay stops at the first blocked step.
func SimulatePath(fragments []story.Fragment, path []string, state State) PathResult {
	res := PathResult{
		Success: true,
		Path:    slices.Clone(path),
		Steps:   []Step{},
		Final:   state,
	}
	if len(path) == 0 {
		res.Success = false
		res.Errors = []string{"path is empty"}
		return res
	}
	if errs := ValidatePath(fragments, path); len(errs) > 0 {
		res.Success = false
		res.Errors = errs
		return res
	}

	idx := story.Index(fragments)
	for i, id := range path {
		f := fragments[idx[id]]
		step := Step{
			FragmentID:    id,
			Index:         i + 1,
			BesitosBefore: state.Besitos,
			BesitosAfter:  state.Besitos,
			Choices:       f.Targets(),
		}
		if step.Choices == nil {
			step.Choices = []string{}
		}
		if i > 0 {
			if err := CanEnter(state, f); err != nil {
				step.Blocked = true
				step.Reason = err.Error()
				res.Steps = append(res.Steps, step)
				res.Success = false
				break
			}
			state = Enter(state, f)
			step.BesitosAfter = state.Besitos
		}
		res.Steps = append(res.Steps, step)
	}
	res.Final = state
	return res
}

// Playthroughs enumerates the complete paths of a story with
// [flow.EnumeratePaths] and replays each of them from state.
func Playthroughs(fragments []story.Fragment, state State, opts ...flow.Option) []PathResult {
	paths := flow.EnumeratePaths(fragments, opts...)
	out := make([]PathResult, len(paths.Paths))
	for i, p := range paths.Paths {
		out[i] = SimulatePath(fragments, p, state)
	}
	return out
}
