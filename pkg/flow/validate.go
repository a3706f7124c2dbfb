package flow

import (
	"fmt"
	"strings"

	"github.com/matzehuels/storyflow/pkg/story"
)

// Category tags an [Issue] with the kind of defect it describes.
type Category string

const (
	CategoryEmptyContent     Category = "empty_content"
	CategoryEmptyID          Category = "empty_id"
	CategoryDuplicateID      Category = "duplicate_id"
	CategoryBrokenConnection Category = "broken_connection"
	CategoryOrphanedFragment Category = "orphaned_fragment"
	CategoryCircularRef      Category = "circular_reference"
)

// Human-readable texts used in issue messages.
const (
	MsgEmptyContent     = "content must not be empty"
	MsgEmptyID          = "fragment ID must not be empty"
	MsgDuplicateID      = "another fragment already uses this ID"
	MsgBrokenConnection = "broken connection"
	MsgOrphanedFragment = "fragment has no incoming decisions"
	MsgCircularRef      = "Circular reference detected"
)

// Issue is a single validation finding. Message is the only field meant for
// humans; the rest identify the defect for tooling.
type Issue struct {
	Category Category `json:"category"`
	// FragmentID is the offending fragment, empty for cycles and blank IDs.
	FragmentID string `json:"fragment_id,omitempty"`
	// Index is the position of the offending fragment in the collection,
	// or -1 for cycles.
	Index int `json:"index"`
	// Decision is the 1-based index of the offending decision, 0 when the
	// issue is not about a decision.
	Decision int    `json:"decision,omitempty"`
	Target   string `json:"target,omitempty"`
	Cycle    *Cycle `json:"cycle,omitempty"`
	Message  string `json:"message"`
}

// String returns the message.
func (i Issue) String() string { return i.Message }

// Stats summarizes a [ValidationResult]. The counts are derived from the
// issue lists so they always agree with them.
type Stats struct {
	TotalFragments     int `json:"total_fragments"`
	BrokenConnections  int `json:"broken_connections"`
	OrphanedFragments  int `json:"orphaned_fragments"`
	CircularReferences int `json:"circular_references"`
}

// ValidationResult is returned by [Validate].
type ValidationResult struct {
	// IsValid is true iff Errors is empty. Warnings never affect it.
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Stats    Stats   `json:"stats"`
	// CyclesTruncated is set when cycle detection hit its bound.
	CyclesTruncated bool `json:"cycles_truncated,omitempty"`
}

// ErrorMessages returns the messages of all errors.
func (r ValidationResult) ErrorMessages() []string { return messages(r.Errors) }

// WarningMessages returns the messages of all warnings.
func (r ValidationResult) WarningMessages() []string { return messages(r.Warnings) }

// Issues returns errors followed by warnings.
func (r ValidationResult) Issues() []Issue {
	out := make([]Issue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

func messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Message
	}
	return out
}

// Validate checks every fragment and the graph as a whole.
//
// Per fragment it reports blank content, blank IDs, IDs shared with another
// fragment and decisions whose target does not exist (one error per such
// decision). Across the graph it warns about orphans, fragments other than
// the entry point that no decision targets, and reports every cycle found by
// [FindCycles] as an error.
func Validate(fragments []story.Fragment, opts ...Option) ValidationResult {
	c := newConfig(opts)
	g := newGraph(fragments, c)

	var errs, warns []Issue

	counts := make(map[string]int, len(fragments))
	for _, f := range fragments {
		counts[f.ID]++
	}

	for i, f := range fragments {
		label := fragmentLabel(f, i)
		if strings.TrimSpace(f.Content) == "" {
			errs = append(errs, Issue{
				Category:   CategoryEmptyContent,
				FragmentID: f.ID,
				Index:      i,
				Message:    label + ": " + MsgEmptyContent,
			})
		}
		if strings.TrimSpace(f.ID) == "" {
			errs = append(errs, Issue{
				Category: CategoryEmptyID,
				Index:    i,
				Message:  label + ": " + MsgEmptyID,
			})
		}
		if counts[f.ID] > 1 {
			errs = append(errs, Issue{
				Category:   CategoryDuplicateID,
				FragmentID: f.ID,
				Index:      i,
				Message:    label + ": " + MsgDuplicateID,
			})
		}
		for j, d := range f.Decisions {
			if !d.HasTarget() || g.exists(d.NextFragment) {
				continue
			}
			errs = append(errs, Issue{
				Category:   CategoryBrokenConnection,
				FragmentID: f.ID,
				Index:      i,
				Decision:   j + 1,
				Target:     d.NextFragment,
				Message:    fmt.Sprintf("%s (decision %d): %s%s%s", label, j+1, MsgBrokenConnection, Arrow, d.NextFragment),
			})
		}
	}

	referenced := make(map[string]bool, len(fragments))
	for _, f := range fragments {
		for _, t := range f.Targets() {
			referenced[t] = true
		}
	}
	for i, f := range fragments {
		if referenced[f.ID] || (g.hasEntry && f.ID == g.entry) {
			continue
		}
		warns = append(warns, Issue{
			Category:   CategoryOrphanedFragment,
			FragmentID: f.ID,
			Index:      i,
			Message:    fragmentLabel(f, i) + ": " + MsgOrphanedFragment,
		})
	}

	cycles := findCycles(g, c)
	for _, cy := range cycles.Cycles {
		errs = append(errs, Issue{
			Category: CategoryCircularRef,
			Index:    -1,
			Cycle:    &cy,
			Message:  MsgCircularRef + ": " + cy.String(),
		})
	}

	if errs == nil {
		errs = []Issue{}
	}
	if warns == nil {
		warns = []Issue{}
	}
	return ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
		Stats: Stats{
			TotalFragments:     len(fragments),
			BrokenConnections:  countCategory(errs, CategoryBrokenConnection),
			OrphanedFragments:  countCategory(warns, CategoryOrphanedFragment),
			CircularReferences: countCategory(errs, CategoryCircularRef),
		},
		CyclesTruncated: cycles.Truncated,
	}
}

func countCategory(issues []Issue, c Category) int {
	n := 0
	for _, is := range issues {
		if is.Category == c {
			n++
		}
	}
	return n
}

func fragmentLabel(f story.Fragment, i int) string {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Sprintf("fragment #%d", i+1)
	}
	return f.ID
}
