// Package preferences edits notification delivery preferences.
package preferences

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email bool
	inApp bool
	muted []model.NotificationType
}

// Model wraps the preferences form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	loaded bool
	saving bool
	err    string
	width  int
	height int
}

// New creates an empty preferences view.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// Start builds the form for p and returns its init command.
func (m *Model) Start(p model.NotificationPreferences) tea.Cmd {
	m.fb = &formBindings{
		email: p.EmailEnabled,
		inApp: p.InAppEnabled,
		muted: append([]model.NotificationType(nil), p.MutedTypes...),
	}
	m.loaded = true
	m.saving = false
	m.err = ""

	opts := make([]huh.Option[model.NotificationType], len(model.NotificationTypes))
	for i, t := range model.NotificationTypes {
		opts[i] = huh.NewOption(ui.Humanize(string(t)), t)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Email notifications").
				Value(&m.fb.email),
			huh.NewConfirm().
				Title("In-app notifications").
				Value(&m.fb.inApp),
			huh.NewMultiSelect[model.NotificationType]().
				Title("Muted types").
				Options(opts...).
				Value(&m.fb.muted),
		),
	).WithWidth(min(max(m.width-4, 40), 80)).WithShowHelp(true).WithKeyMap(ui.FormKeyMap())

	return m.form.Init()
}

// SetError shows a load or save failure.
func (m *Model) SetError(msg string) {
	m.err = msg
	m.saving = false
	m.loaded = true
}

// Preferences returns the values currently in the form.
func (m Model) Preferences() model.NotificationPreferences {
	if m.fb == nil {
		return model.NotificationPreferences{}
	}
	return model.NotificationPreferences{
		EmailEnabled: m.fb.email,
		InAppEnabled: m.fb.inApp,
		MutedTypes:   append([]model.NotificationType(nil), m.fb.muted...),
	}
}

// Update forwards messages to the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
			return m, intent.Emit(intent.CloseMsg{})
		}
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		m.saving = true
		return m, intent.Emit(intent.SavePreferencesMsg{Preferences: m.Preferences()})
	case huh.StateAborted:
		m.form = nil
		return m, intent.Emit(intent.CloseMsg{})
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Notification preferences")
	var body string
	switch {
	case m.err != "":
		body = lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err) +
			"\n\n" + theme.HelpStyle.Render("esc back")
	case !m.loaded:
		body = theme.DimmedStyle.Render("Loading preferences…")
	case m.saving:
		body = theme.DimmedStyle.Render("Saving…")
	case m.form != nil:
		body = m.form.View()
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + body)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
