package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

func playFragments() []story.Fragment {
	return []story.Fragment{
		{ID: "start", Content: "Lucien wakes.", Character: story.CharacterLucien, Decisions: []story.Decision{
			{Text: "Garden", NextFragment: "garden"},
			{Text: "Vault", NextFragment: "vault"},
		}},
		{ID: "garden", Content: "Roses.", Character: story.CharacterDiana, RewardBesitos: 5},
		{ID: "vault", Content: "Gold.", Character: story.CharacterDiana, RequiredRole: story.RoleVIP},
	}
}

func press(m playModel, keys ...string) playModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(playModel)
	}
	return m
}

func newTestPlay(t *testing.T) playModel {
	t.Helper()
	sess, err := simulate.New(playFragments())
	if err != nil {
		t.Fatal(err)
	}
	return newPlayModel("Test", sess)
}

func TestPlayChooseAndBack(t *testing.T) {
	m := press(newTestPlay(t), "enter")
	if got := m.session.Current().ID; got != "garden" {
		t.Fatalf("current = %q, want garden", got)
	}
	if !strings.Contains(m.View(), "The End") {
		t.Error("terminal fragment should show The End")
	}
	if got := m.session.State().Besitos; got != simulate.DefaultBesitos+5 {
		t.Errorf("besitos = %d", got)
	}

	m = press(m, "b")
	if got := m.session.Current().ID; got != "start" {
		t.Errorf("after back current = %q", got)
	}
	if got := m.session.State().Besitos; got != simulate.DefaultBesitos {
		t.Errorf("back did not restore besitos: %d", got)
	}
}

func TestPlayBlockedChoice(t *testing.T) {
	m := press(newTestPlay(t), "2")
	if got := m.session.Current().ID; got != "start" {
		t.Fatalf("blocked choice moved to %q", got)
	}
	if m.status == "" {
		t.Error("blocked choice should set a status message")
	}

	m = press(m, "v", "down", "enter")
	if got := m.session.Current().ID; got != "vault" {
		t.Errorf("vip reader should enter the vault, at %q", got)
	}
}

func TestPlayBackAtStart(t *testing.T) {
	m := press(newTestPlay(t), "b")
	if m.status == "" {
		t.Error("back on the entry fragment should report an error")
	}
}

func TestNextRole(t *testing.T) {
	tests := map[story.Role]story.Role{
		story.RoleNormal:  story.RoleVIP,
		story.RoleVIP:     story.RolePremium,
		story.RolePremium: story.RoleNormal,
		"":                story.RoleNormal,
	}
	for in, want := range tests {
		if got := nextRole(in); got != want {
			t.Errorf("nextRole(%q) = %q, want %q", in, got, want)
		}
	}
}
