package story

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// StartID is the fragment ID that marks the entry point of a story.
// When no fragment carries it, the first fragment of the collection is used.
const StartID = "start"

var (
	// ErrInvalidFragmentID is returned by [AddFragment] when the fragment ID is
	// empty or whitespace-only.
	ErrInvalidFragmentID = errors.New("fragment ID must not be empty")

	// ErrDuplicateFragmentID is returned by [AddFragment] when a fragment with
	// the same ID already exists in the collection.
	ErrDuplicateFragmentID = errors.New("duplicate fragment ID")

	// ErrUnknownFragment is returned by lookups and removals when the ID is
	// not present in the collection.
	ErrUnknownFragment = errors.New("unknown fragment")
)

// Character identifies the speaker of a fragment. The set is open: any
// non-empty string is a valid character, the constants below are the ones
// the editor offers by default.
type Character string

const (
	CharacterLucien Character = "Lucien"
	CharacterDiana  Character = "Diana"
)

// Role is an access tier required to enter a fragment. Roles are ordered:
// normal < vip < premium.
type Role string

const (
	RoleNormal  Role = "normal"
	RoleVIP     Role = "vip"
	RolePremium Role = "premium"
)

// Rank returns the position of the role in the access order. Unknown roles
// rank as [RoleNormal].
func (r Role) Rank() int {
	switch r {
	case RoleVIP:
		return 1
	case RolePremium:
		return 2
	default:
		return 0
	}
}

// Satisfies reports whether a reader holding role r may enter a fragment
// that requires the given role. vip and premium both satisfy vip; only
// premium satisfies premium.
func (r Role) Satisfies(required Role) bool { return r.Rank() >= required.Rank() }

// Known reports whether r is one of the three defined roles.
func (r Role) Known() bool {
	return r == RoleNormal || r == RoleVIP || r == RolePremium
}

// Position is the canvas coordinate of a fragment. It is presentation-only
// and never influences analysis.
type Position struct {
	X float64 `json:"x" toml:"x" yaml:"x"`
	Y float64 `json:"y" toml:"y" yaml:"y"`
}

// Decision is a labelled outgoing edge. An empty NextFragment means the
// choice leads nowhere (no edge).
type Decision struct {
	Text         string `json:"text" toml:"text" yaml:"text"`
	NextFragment string `json:"next_fragment" toml:"next_fragment" yaml:"next_fragment"`
}

// HasTarget reports whether the decision points at a fragment.
func (d Decision) HasTarget() bool { return d.NextFragment != "" }

// Fragment is a single story node: one scene or beat of the narrative.
type Fragment struct {
	ID              string     `json:"fragment_id" toml:"fragment_id" yaml:"fragment_id"`
	Content         string     `json:"content" toml:"content" yaml:"content"`
	Character       Character  `json:"character" toml:"character" yaml:"character"`
	Level           int        `json:"level" toml:"level" yaml:"level"`
	RequiredBesitos int        `json:"required_besitos" toml:"required_besitos" yaml:"required_besitos"`
	RequiredRole    Role       `json:"required_role" toml:"required_role" yaml:"required_role"`
	RewardBesitos   int        `json:"reward_besitos" toml:"reward_besitos" yaml:"reward_besitos"`
	Decisions       []Decision `json:"decisions" toml:"decisions" yaml:"decisions"`
	Position        Position   `json:"position" toml:"position" yaml:"position"`
}

// IsTerminal reports whether the fragment ends a branch (has no decisions).
func (f Fragment) IsTerminal() bool { return len(f.Decisions) == 0 }

// Targets returns the non-empty decision targets in decision order.
// Duplicates are kept because decision order is meaningful.
func (f Fragment) Targets() []string {
	var out []string
	for _, d := range f.Decisions {
		if d.HasTarget() {
			out = append(out, d.NextFragment)
		}
	}
	return out
}

// Clone returns a deep copy of the fragment.
func (f Fragment) Clone() Fragment {
	f.Decisions = slices.Clone(f.Decisions)
	return f
}

// Story is the importable/exportable document. Analysis only ever looks at
// Fragments; Title and Description belong to the editor.
type Story struct {
	Title       string     `json:"title" toml:"title" yaml:"title"`
	Description string     `json:"description" toml:"description" yaml:"description"`
	Entry       string     `json:"entry,omitempty" toml:"entry,omitempty" yaml:"entry,omitempty"`
	Fragments   []Fragment `json:"fragments" toml:"fragments" yaml:"fragments"`
}

// NewFragment returns a fragment with the editor defaults and a freshly
// generated unique ID.
func NewFragment() Fragment {
	return Fragment{
		ID:           "fragment_" + uuid.NewString(),
		Character:    CharacterLucien,
		Level:        1,
		RequiredRole: RoleNormal,
		Decisions:    []Decision{},
		Position:     Position{X: 100, Y: 100},
	}
}

// EntryPoint returns the fragment analysis starts from: the one with ID
// [StartID], or the first fragment of the collection. It returns false only
// when fragments is empty.
func EntryPoint(fragments []Fragment) (Fragment, bool) {
	if i := slices.IndexFunc(fragments, func(f Fragment) bool { return f.ID == StartID }); i >= 0 {
		return fragments[i], true
	}
	if len(fragments) == 0 {
		return Fragment{}, false
	}
	return fragments[0], true
}

// EntryID is [EntryPoint] reduced to the ID. An explicit override, when
// non-empty and present in the collection, wins over the start rule.
func EntryID(fragments []Fragment, override string) (string, bool) {
	if override != "" {
		if slices.ContainsFunc(fragments, func(f Fragment) bool { return f.ID == override }) {
			return override, true
		}
	}
	f, ok := EntryPoint(fragments)
	return f.ID, ok
}

// Index maps each fragment ID to the position of its first occurrence.
// Later duplicates are ignored so lookups are stable.
func Index(fragments []Fragment) map[string]int {
	idx := make(map[string]int, len(fragments))
	for i, f := range fragments {
		if _, seen := idx[f.ID]; !seen {
			idx[f.ID] = i
		}
	}
	return idx
}

// Find returns the first fragment with the given ID.
func Find(fragments []Fragment, id string) (Fragment, bool) {
	i := slices.IndexFunc(fragments, func(f Fragment) bool { return f.ID == id })
	if i < 0 {
		return Fragment{}, false
	}
	return fragments[i], true
}

// ConnectionMap maps each fragment ID to its decision targets.
func ConnectionMap(fragments []Fragment) map[string][]string {
	m := make(map[string][]string, len(fragments))
	for _, f := range fragments {
		m[f.ID] = append(m[f.ID], f.Targets()...)
	}
	return m
}

// AddFragment appends f to a copy of fragments. The ID must be non-empty
// and unused.
func AddFragment(fragments []Fragment, f Fragment) ([]Fragment, error) {
	if strings.TrimSpace(f.ID) == "" {
		return nil, ErrInvalidFragmentID
	}
	if _, ok := Find(fragments, f.ID); ok {
		return nil, ErrDuplicateFragmentID
	}
	out := make([]Fragment, 0, len(fragments)+1)
	out = append(out, fragments...)
	return append(out, f.Clone()), nil
}

// RemoveFragment returns a copy of fragments without the fragment id and
// with every decision that pointed at it cleared. The input is not modified.
func RemoveFragment(fragments []Fragment, id string) ([]Fragment, error) {
	if _, ok := Find(fragments, id); !ok {
		return nil, ErrUnknownFragment
	}
	out := make([]Fragment, 0, len(fragments)-1)
	for _, f := range fragments {
		if f.ID == id {
			continue
		}
		f = f.Clone()
		for i := range f.Decisions {
			if f.Decisions[i].NextFragment == id {
				f.Decisions[i].NextFragment = ""
			}
		}
		out = append(out, f)
	}
	return out, nil
}
