package activity

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/ui"
)

const dateLayout = "2006-01-02"

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	category   string
	severity   string
	startDate  string
	endDate    string
	merchantID string
	actorID    string
	search     string
}

type filterForm struct {
	form *huh.Form
	fb   *formBindings
	base model.ActivityFilter
}

func newFilterForm(f model.ActivityFilter, width int) *filterForm {
	fb := &formBindings{
		category:   string(f.Category),
		severity:   string(f.Severity),
		startDate:  f.StartDate,
		endDate:    f.EndDate,
		merchantID: f.MerchantID,
		actorID:    f.ActorID,
		search:     f.Search,
	}

	categories := []huh.Option[string]{huh.NewOption("All categories", "")}
	for _, c := range model.ActivityCategories {
		categories = append(categories, huh.NewOption(ui.Humanize(string(c)), string(c)))
	}
	severities := []huh.Option[string]{huh.NewOption("All severities", "")}
	for _, s := range model.ActivitySeverities {
		severities = append(severities, huh.NewOption(ui.Humanize(string(s)), string(s)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Category").
				Options(categories...).
				Value(&fb.category),
			huh.NewSelect[string]().
				Title("Severity").
				Options(severities...).
				Value(&fb.severity),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&fb.startDate).
				Validate(validateOptionalDate),
			huh.NewInput().
				Title("End date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&fb.endDate).
				Validate(validateOptionalDate),
			huh.NewInput().
				Title("Merchant ID").
				Value(&fb.merchantID),
			huh.NewInput().
				Title("Actor ID").
				Value(&fb.actorID),
			huh.NewInput().
				Title("Search").
				Placeholder("action or description").
				Value(&fb.search),
		),
	).WithWidth(formWidth(width)).WithShowHelp(true).WithKeyMap(ui.FormKeyMap())

	return &filterForm{form: form, fb: fb, base: f}
}

// filter returns the edited filter, starting again from page 1.
func (f *filterForm) filter() (model.ActivityFilter, error) {
	out := f.base
	out.Category = model.ActivityCategory(f.fb.category)
	out.Severity = model.ActivitySeverity(f.fb.severity)
	out.StartDate = strings.TrimSpace(f.fb.startDate)
	out.EndDate = strings.TrimSpace(f.fb.endDate)
	out.MerchantID = strings.TrimSpace(f.fb.merchantID)
	out.ActorID = strings.TrimSpace(f.fb.actorID)
	out.Search = strings.TrimSpace(f.fb.search)
	out.Page = 1

	if out.StartDate != "" && out.EndDate != "" && out.StartDate > out.EndDate {
		return out, fmt.Errorf("start date is after end date")
	}
	return out, nil
}

func (f *filterForm) update(msg tea.Msg) (done, aborted bool, cmd tea.Cmd) {
	mdl, cmd := f.form.Update(msg)
	if form, ok := mdl.(*huh.Form); ok {
		f.form = form
	}
	return f.form.State == huh.StateCompleted, f.form.State == huh.StateAborted, cmd
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
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
