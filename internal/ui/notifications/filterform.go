package notifications

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/ui"
)

// filterBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type filterBindings struct {
	typ        string
	unreadOnly bool
	search     string
}

// filterForm edits the notification filter predicates.
type filterForm struct {
	form *huh.Form
	fb   *filterBindings
	base model.NotificationFilter
}

func newFilterForm(f model.NotificationFilter, width int) *filterForm {
	fb := &filterBindings{
		typ:        string(f.Type),
		unreadOnly: f.UnreadOnly,
		search:     f.Search,
	}

	opts := []huh.Option[string]{huh.NewOption("All types", "")}
	for _, t := range model.NotificationTypes {
		opts = append(opts, huh.NewOption(ui.Humanize(string(t)), string(t)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Type").
				Options(opts...).
				Value(&fb.typ),
			huh.NewConfirm().
				Title("Unread only").
				Affirmative("Yes").
				Negative("No").
				Value(&fb.unreadOnly),
			huh.NewInput().
				Title("Search").
				Placeholder("title or message").
				Value(&fb.search).
				Validate(validateSearch),
		),
	).WithWidth(formWidth(width)).WithShowHelp(true).WithKeyMap(ui.FormKeyMap())

	return &filterForm{form: form, fb: fb, base: f}
}

// filter returns the edited filter, starting again from page 1.
func (f *filterForm) filter() model.NotificationFilter {
	out := f.base
	out.Type = model.NotificationType(f.fb.typ)
	out.UnreadOnly = f.fb.unreadOnly
	out.Search = strings.TrimSpace(f.fb.search)
	out.Page = 1
	return out
}

// update forwards msg to the form and reports whether it finished.
func (f *filterForm) update(msg tea.Msg) (done, aborted bool, cmd tea.Cmd) {
	mdl, cmd := f.form.Update(msg)
	if form, ok := mdl.(*huh.Form); ok {
		f.form = form
	}
	return f.form.State == huh.StateCompleted, f.form.State == huh.StateAborted, cmd
}

func validateSearch(s string) error {
	if len(strings.TrimSpace(s)) > 200 {
		return fmt.Errorf("search must be at most 200 characters")
	}
	return nil
}

func formWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}
