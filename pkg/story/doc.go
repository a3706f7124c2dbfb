// Package story defines the data model of a branching narrative: fragments
// (nodes) connected by reader decisions (edges), gated by besitos and roles.
//
// # Overview
//
// A [Story] is the document the editor imports and exports. Its Fragments
// slice is the only part the analysis packages look at. Order matters: a
// fragment's Decisions are shown to the reader in slice order, and when no
// fragment is called "start" the first fragment of the slice becomes the
// entry point (see [EntryPoint]).
//
//	{
//	  "title": "The Letter",
//	  "description": "Lucien wakes up somewhere unfamiliar",
//	  "fragments": [
//	    {
//	      "fragment_id": "start",
//	      "content": "Lucien wakes up...",
//	      "character": "Lucien",
//	      "level": 1,
//	      "required_besitos": 0,
//	      "required_role": "normal",
//	      "reward_besitos": 10,
//	      "decisions": [{"text": "Explore", "next_fragment": "explore_room"}],
//	      "position": {"x": 100, "y": 100}
//	    }
//	  ]
//	}
//
// # Invariants
//
// The model itself does not enforce graph invariants. Fragment IDs should be
// unique and non-empty, decisions should point at existing fragments, and
// every fragment except the entry point should be the target of some
// decision. Violations are reported by [github.com/matzehuels/storyflow/pkg/flow.Validate]
// rather than rejected here, so the editor can hold a story in any
// intermediate state.
//
// # Editing Helpers
//
// [NewFragment], [AddFragment] and [RemoveFragment] mirror the editor actions.
// They never modify their input; each returns a new slice.
package story
