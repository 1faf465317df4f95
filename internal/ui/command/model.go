package command

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
)

// CommandMsg carries a canonical command name, plus its argument for
// commands such as "theme mono".
type CommandMsg string

// Commands lists the palette commands offered as completions.
var Commands = []string{
	"activity",
	"feed",
	"mark all read",
	"notifications",
	"preferences",
	"quit",
	"reconnect",
	"refresh",
	"reset filters",
	"theme default",
	"theme mono",
}

var adminOnly = map[string]bool{"activity": true, "feed": true}

var aliases = map[string]string{
	"q":        "quit",
	"sync":     "refresh",
	"read all": "mark all read",
	"prefs":    "preferences",
	"clear":    "reset filters",
	"logs":     "activity",
}

const historySize = 20

// Available returns the commands the role may run, sorted.
func Available(role model.Role) []string {
	out := make([]string, 0, len(Commands))
	for _, c := range Commands {
		if adminOnly[c] && role != model.RoleAdmin {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Normalize lowercases input, collapses whitespace and resolves aliases.
func Normalize(input string) string {
	cmd := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if canonical, ok := aliases[cmd]; ok {
		return canonical
	}
	return cmd
}

// Model is the command palette view.
type Model struct {
	input   textinput.Model
	history []string
	// cursor indexes history while recalling; len(history) means a fresh line.
	cursor int
	width  int
	height int
}

func New(role model.Role, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Available(role))
	ti.Focus()

	m := Model{input: ti}
	m.SetSize(width, height)
	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			cmd := Normalize(m.input.Value())
			m.input.Reset()
			if cmd == "" {
				return m, nil
			}
			m.remember(cmd)
			return m, func() tea.Msg { return CommandMsg(cmd) }
		case "up":
			m.recall(-1)
			return m, nil
		case "down":
			m.recall(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(cmd string) {
	m.history = slices.DeleteFunc(m.history, func(h string) bool { return h == cmd })
	m.history = append(m.history, cmd)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	m.cursor = len(m.history)
}

func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+step, 0), len(m.history))
	if m.cursor == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.cursor])
	m.input.CursorEnd()
}

func (m Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Command Palette"),
		m.input.View(),
		theme.DimmedStyle.Render("tab complete · ↑/↓ history · esc close"),
	)
	return theme.PanelStyle.Width(max(m.width-4, 20)).Render(content)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-6, 10)
}

// Focus gives keyboard focus to the text input and starts a fresh line.
func (m *Model) Focus() tea.Cmd {
	m.cursor = len(m.history)
	return m.input.Focus()
}
