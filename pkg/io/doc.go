// Package io reads and writes story documents.
//
// # Formats
//
// The canonical format is the JSON document exported by the story editor:
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
// The same document can be written as TOML (fragments as [[fragments]]
// tables) or YAML with identical keys. [Import] and [Export] pick the format
// from the file extension; [Read] and [Write] take it explicitly.
//
// # Structural Checks
//
// Graph defects (broken links, orphans, cycles, blank fields) are left for
// package flow to report. Decoding only fails when the document is not a
// story at all: it cannot be parsed, the "fragments" key is missing or not a
// list, or a fragment has no "fragment_id" key. These failures carry the
// INVALID_STORY code from package errors; a missing file carries
// FILE_NOT_FOUND.
//
// Missing optional fields get the editor defaults: decisions become an empty
// list and a missing required_role becomes "normal".
package io
