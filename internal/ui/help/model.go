package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui/command"
)

var sectionTitles = []string{"Navigation", "Lists", "Views", "Actions"}

// Model is the help overlay: key bindings per section plus the palette
// commands the signed-in role may run.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	role   model.Role
	width  int
	height int
}

func New(k *keys.KeyMap, role model.Role, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	return Model{keys: k, help: h, role: role, width: width, height: height}
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	var sections []string
	for i, group := range m.keys.FullHelp() {
		group = m.visible(group)
		if len(group) == 0 {
			continue
		}
		title := ""
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		sections = append(sections, m.section(title, group))
	}

	body := []string{
		theme.TitleStyle.Render("Keyboard Shortcuts"),
		lipgloss.JoinHorizontal(lipgloss.Top, sections...),
		"",
		theme.TitleStyle.Render("Commands"),
		theme.DimmedStyle.Render(strings.Join(command.Available(m.role), " · ")),
	}
	if m.role != model.RoleAdmin {
		body = append(body, "", theme.DimmedStyle.Render("Activity views are available to admins only."))
	}

	return theme.PanelStyle.
		Width(max(m.width-4, 20)).
		Height(max(m.height-4, 5)).
		Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

func (m Model) section(title string, group []key.Binding) string {
	rows := []string{theme.HeaderStyle.Render(title)}
	for _, b := range group {
		h := b.Help()
		rows = append(rows, m.help.Styles.FullKey.Render(h.Key)+" "+m.help.Styles.FullDesc.Render(h.Desc))
	}
	return lipgloss.NewStyle().MarginRight(4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// visible drops the bindings that lead to views the role cannot open.
func (m Model) visible(group []key.Binding) []key.Binding {
	if m.role == model.RoleAdmin {
		return group
	}
	out := make([]key.Binding, 0, len(group))
	for _, b := range group {
		if b.Help().Key == m.keys.Activity.Help().Key || b.Help().Key == m.keys.Feed.Help().Key {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
