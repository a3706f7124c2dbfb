package io

import "github.com/matzehuels/storyflow/pkg/story"

// document mirrors story.Story with pointers where presence matters.
type document struct {
	Title       string      `json:"title" toml:"title" yaml:"title"`
	Description string      `json:"description" toml:"description" yaml:"description"`
	Entry       string      `json:"entry,omitempty" toml:"entry,omitempty" yaml:"entry,omitempty"`
	Fragments   *[]fragment `json:"fragments" toml:"fragments" yaml:"fragments"`
}

type fragment struct {
	ID              *string          `json:"fragment_id" toml:"fragment_id" yaml:"fragment_id"`
	Content         string           `json:"content" toml:"content" yaml:"content"`
	Character       story.Character  `json:"character" toml:"character" yaml:"character"`
	Level           int              `json:"level" toml:"level" yaml:"level"`
	RequiredBesitos int              `json:"required_besitos" toml:"required_besitos" yaml:"required_besitos"`
	RequiredRole    story.Role       `json:"required_role" toml:"required_role" yaml:"required_role"`
	RewardBesitos   int              `json:"reward_besitos" toml:"reward_besitos" yaml:"reward_besitos"`
	Decisions       []story.Decision `json:"decisions" toml:"decisions" yaml:"decisions"`
	Position        story.Position   `json:"position" toml:"position" yaml:"position"`
}

func (f fragment) toStory() story.Fragment {
	out := story.Fragment{
		ID:              *f.ID,
		Content:         f.Content,
		Character:       f.Character,
		Level:           f.Level,
		RequiredBesitos: f.RequiredBesitos,
		RequiredRole:    f.RequiredRole,
		RewardBesitos:   f.RewardBesitos,
		Decisions:       f.Decisions,
		Position:        f.Position,
	}
	if out.Decisions == nil {
		out.Decisions = []story.Decision{}
	}
	if out.RequiredRole == "" {
		out.RequiredRole = story.RoleNormal
	}
	return out
}
