package simulate

import (
	"errors"
	"fmt"

	"github.com/matzehuels/storyflow/pkg/story"
)

// DefaultBesitos is the balance a new reader starts with.
const DefaultBesitos = 100

var (
	// ErrInsufficientBesitos is returned when the balance does not cover a
	// fragment's RequiredBesitos.
	ErrInsufficientBesitos = errors.New("not enough besitos")

	// ErrRoleRequired is returned when the reader's role does not satisfy a
	// fragment's RequiredRole.
	ErrRoleRequired = errors.New("role requirement not met")

	// ErrNoDecision is returned by [Session.Choose] for an index outside the
	// current fragment's decisions.
	ErrNoDecision = errors.New("no such decision")

	// ErrDeadEnd is returned when a decision has no target or its target
	// does not exist.
	ErrDeadEnd = errors.New("decision leads nowhere")

	// ErrEmptyStory is returned by [New] when there is nothing to play.
	ErrEmptyStory = errors.New("story has no fragments")

	// ErrAtStart is returned by [Session.Back] on the entry fragment.
	ErrAtStart = errors.New("already at the first fragment")
)

// State is what the reader carries between fragments.
type State struct {
	Besitos int        `json:"besitos" toml:"besitos"`
	Role    story.Role `json:"role" toml:"role"`
	Level   int        `json:"level" toml:"level"`
}

// DefaultState returns the state of a new reader.
func DefaultState() State {
	return State{Besitos: DefaultBesitos, Role: story.RoleNormal, Level: 1}
}

// CanEnter reports why a reader in state s may not enter f, or nil.
// The returned error wraps [ErrInsufficientBesitos] or [ErrRoleRequired].
func CanEnter(s State, f story.Fragment) error {
	if f.RequiredBesitos > s.Besitos {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientBesitos, f.ID, f.RequiredBesitos, s.Besitos)
	}
	if !s.Role.Satisfies(f.RequiredRole) {
		return fmt.Errorf("%w: %s requires %s, have %s", ErrRoleRequired, f.ID, f.RequiredRole, s.Role)
	}
	return nil
}

// Enter returns the state after entering f. It does not check [CanEnter].
func Enter(s State, f story.Fragment) State {
	s.Besitos = s.Besitos - f.RequiredBesitos + f.RewardBesitos
	return s
}
