package story_test

import (
	"fmt"

	"github.com/matzehuels/storyflow/pkg/story"
)

func ExampleEntryPoint() {
	frags := []story.Fragment{
		{ID: "prologue"},
		{ID: "start", Decisions: []story.Decision{{Text: "Begin", NextFragment: "prologue"}}},
	}

	entry, _ := story.EntryPoint(frags)
	fmt.Println("Entry:", entry.ID)
	fmt.Println("Targets:", entry.Targets())
	// Output:
	// Entry: start
	// Targets: [prologue]
}

func ExampleRole_Satisfies() {
	fmt.Println(story.RolePremium.Satisfies(story.RoleVIP))
	fmt.Println(story.RoleVIP.Satisfies(story.RolePremium))
	// Output:
	// true
	// false
}
