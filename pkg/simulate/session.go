package simulate

import (
	"fmt"
	"slices"

	"github.com/matzehuels/storyflow/pkg/story"
)

// Option configures a [Session].
type Option func(*Session)

// WithState sets the state the reader starts (and restarts) with.
func WithState(s State) Option {
	return func(sess *Session) { sess.initial = s }
}

// WithEntry names the entry fragment, overriding the "start" rule when the
// ID exists.
func WithEntry(id string) Option {
	return func(sess *Session) { sess.entryOverride = id }
}

type visit struct {
	id    string
	state State
}

// Session is an interactive playthrough. It is not safe for concurrent use.
type Session struct {
	fragments     []story.Fragment
	index         map[string]int
	entry         string
	entryOverride string
	initial       State
	history       []visit
}

// Choice describes one decision of the current fragment from the reader's
// point of view.
type Choice struct {
	Index    int            `json:"index"`
	Decision story.Decision `json:"decision"`
	// Blocked explains why the choice cannot be taken, nil when it can.
	Blocked error `json:"-"`
	Reason  string `json:"reason,omitempty"`
}

// Available reports whether the choice can be taken.
func (c Choice) Available() bool { return c.Blocked == nil }

// New starts a session on the entry fragment.
func New(fragments []story.Fragment, opts ...Option) (*Session, error) {
	s := &Session{
		fragments: fragments,
		index:     story.Index(fragments),
		initial:   DefaultState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	entry, ok := story.EntryID(fragments, s.entryOverride)
	if !ok {
		return nil, ErrEmptyStory
	}
	s.entry = entry
	s.Restart()
	return s, nil
}

// Restart returns to the entry fragment with the initial state.
func (s *Session) Restart() {
	s.history = []visit{{id: s.entry, state: s.initial}}
}

// Current returns the fragment the reader is on.
func (s *Session) Current() story.Fragment {
	return s.fragment(s.history[len(s.history)-1].id)
}

// State returns the reader's current state.
func (s *Session) State() State {
	return s.history[len(s.history)-1].state
}

// SetRole changes the reader's role. The change survives [Session.Back]
// but not [Session.Restart].
func (s *Session) SetRole(r story.Role) {
	for i := range s.history {
		s.history[i].state.Role = r
	}
}

// History returns the visited fragment IDs, entry first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	for i, v := range s.history {
		out[i] = v.id
	}
	return out
}

// Depth is the number of fragments visited, including the current one.
func (s *Session) Depth() int { return len(s.history) }

// Finished reports whether the current fragment ends the story.
func (s *Session) Finished() bool { return s.Current().IsTerminal() }

// Choices lists the current fragment's decisions with their availability.
func (s *Session) Choices() []Choice {
	cur := s.Current()
	state := s.State()
	out := make([]Choice, len(cur.Decisions))
	for i, d := range cur.Decisions {
		c := Choice{Index: i, Decision: d}
		next, ok := s.lookup(d.NextFragment)
		switch {
		case !ok:
			c.Blocked = fmt.Errorf("%w: %q", ErrDeadEnd, d.NextFragment)
		default:
			c.Blocked = CanEnter(state, next)
		}
		if c.Blocked != nil {
			c.Reason = c.Blocked.Error()
		}
		out[i] = c
	}
	return out
}

// Choose takes decision i (0-based) of the current fragment. On success the
// target becomes current and the cost and reward are applied. A blocked
// choice leaves the session unchanged.
func (s *Session) Choose(i int) (story.Fragment, error) {
	cur := s.Current()
	if i < 0 || i >= len(cur.Decisions) {
		return story.Fragment{}, fmt.Errorf("%w: %d (have %d)", ErrNoDecision, i+1, len(cur.Decisions))
	}
	target := cur.Decisions[i].NextFragment
	next, ok := s.lookup(target)
	if !ok {
		return story.Fragment{}, fmt.Errorf("%w: %q", ErrDeadEnd, target)
	}
	state := s.State()
	if err := CanEnter(state, next); err != nil {
		return story.Fragment{}, err
	}
	s.history = append(s.history, visit{id: next.ID, state: Enter(state, next)})
	return next, nil
}

// Back returns to the previous fragment and restores the state the reader
// had there.
func (s *Session) Back() error {
	if len(s.history) <= 1 {
		return ErrAtStart
	}
	s.history = slices.Delete(s.history, len(s.history)-1, len(s.history))
	return nil
}

func (s *Session) lookup(id string) (story.Fragment, bool) {
	if id == "" {
		return story.Fragment{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return story.Fragment{}, false
	}
	return s.fragments[i], true
}

func (s *Session) fragment(id string) story.Fragment {
	f, _ := s.lookup(id)
	return f
}
