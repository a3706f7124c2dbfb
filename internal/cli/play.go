package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

var (
	playContentStyle = lipgloss.NewStyle().Foreground(colorWhite).PaddingLeft(2)
	playChoiceStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	playCursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	playBlockedStyle = lipgloss.NewStyle().Foreground(colorDim)
	playStatusStyle  = lipgloss.NewStyle().Foreground(colorRed)
	playEndStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)

	characterStyles = map[story.Character]lipgloss.Style{
		story.CharacterLucien: lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		story.CharacterDiana:  lipgloss.NewStyle().Bold(true).Foreground(colorPink),
	}
)

var roleCycle = []story.Role{story.RoleNormal, story.RoleVIP, story.RolePremium}

// playModel is the bubbletea model for the interactive preview.
type playModel struct {
	title   string
	session *simulate.Session
	cursor  int
	status  string
	width   int
}

func newPlayModel(title string, sess *simulate.Session) playModel {
	return playModel{title: title, session: sess, width: 80}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		choices := m.session.Choices()
		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			m = m.choose(m.cursor)
		case "b", "backspace":
			if err := m.session.Back(); err != nil {
				m.status = err.Error()
			}
			m.cursor = 0
		case "r":
			m.session.Restart()
			m.cursor = 0
		case "v":
			m.session.SetRole(nextRole(m.session.State().Role))
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				m = m.choose(int(key[0] - '1'))
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m playModel) choose(i int) playModel {
	if _, err := m.session.Choose(i); err != nil {
		m.status = err.Error()
		return m
	}
	m.cursor = 0
	return m
}

func nextRole(r story.Role) story.Role {
	for i, role := range roleCycle {
		if role == r {
			return roleCycle[(i+1)%len(roleCycle)]
		}
	}
	return story.RoleNormal
}

func (m playModel) View() string {
	var b strings.Builder
	f := m.session.Current()
	st := m.session.State()

	if m.title != "" {
		b.WriteString(StyleTitle.Render(m.title))
		b.WriteString("\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("besitos %d · role %s · step %d", st.Besitos, st.Role, m.session.Depth())))
	b.WriteString("\n\n")

	speaker, ok := characterStyles[f.Character]
	if !ok {
		speaker = lipgloss.NewStyle().Bold(true)
	}
	b.WriteString(speaker.Render(string(f.Character)))
	b.WriteString(StyleDim.Render("  " + f.ID))
	b.WriteString("\n")
	b.WriteString(playContentStyle.Width(max(m.width-4, 20)).Render(f.Content))
	b.WriteString("\n\n")

	if m.session.Finished() {
		b.WriteString(playEndStyle.Render("The End"))
		b.WriteString("\n")
	}
	for i, c := range m.session.Choices() {
		cursor := "  "
		style := playChoiceStyle
		if i == m.cursor {
			cursor = playCursorStyle.Render("▸ ")
			style = playCursorStyle
		}
		line := fmt.Sprintf("%d. %s", i+1, c.Decision.Text)
		if !c.Available() {
			line = playBlockedStyle.Render(line + " (" + c.Reason + ")")
		} else {
			line = style.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + playStatusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ move  ⏎ choose  b back  r restart  v role  q quit"))
	return b.String()
}

// playCommand creates the play command.
func (c *CLI) playCommand() *cobra.Command {
	var entry string
	cmd := &cobra.Command{
		Use:   "play <story>",
		Short: "Read through a story interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlay(cmd.Context(), args[0], entry)
		},
	}
	cmd.Flags().StringVar(&entry, "entry", "", "start from this fragment")
	return cmd
}

func (c *CLI) runPlay(ctx context.Context, path, entry string) error {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	s, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	if entry == "" {
		entry = s.Entry
	}
	sess, err := simulate.New(s.Fragments,
		simulate.WithState(c.Config.PreviewState()),
		simulate.WithEntry(entry))
	if err != nil {
		return err
	}

	p := tea.NewProgram(newPlayModel(s.Title, sess), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
