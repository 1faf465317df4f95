package activity

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func shown(entries []model.ActivityLog, f model.ActivityFilter, total int) Model {
	m := New(keys.DefaultKeyMap(), 140, 30)
	m.SetView(feed.View[model.ActivityLog]{
		Items: entries,
		Pagination: model.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: model.TotalPagesFor(total, f.Limit),
		},
	}, f)
	return m
}

func TestEmptyTable(t *testing.T) {
	m := shown(nil, model.DefaultActivityFilter(), 0)
	assert.Contains(t, m.View(), "No activity recorded yet.")

	f := model.DefaultActivityFilter()
	f.Severity = model.SeverityCritical
	m = shown(nil, f, 0)
	assert.Contains(t, m.View(), "No matching activity.")
	assert.Equal(t, "severity: critical", m.FilterSummary())
}

func TestRowsAndDetail(t *testing.T) {
	m := shown([]model.ActivityLog{{
		ID:          "a1",
		Action:      "merchant.approved",
		Description: "Merchant Acme approved",
		Category:    model.CategoryMerchant,
		Severity:    model.SeverityInfo,
		Metadata:    map[string]any{"b": 2, "a": 1},
	}}, model.DefaultActivityFilter(), 1)

	assert.Contains(t, m.View(), "merchant.approved")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view := m.View()
	assert.Contains(t, view, "Merchant Acme approved")
	assert.Less(t, indexOf(view, "a = 1"), indexOf(view, "b = 2"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestPagingAndReset(t *testing.T) {
	entries := make([]model.ActivityLog, 20)
	for i := range entries {
		entries[i] = model.ActivityLog{ID: string(rune('a' + i))}
	}
	m := shown(entries, model.DefaultActivityFilter(), 41)

	_, cmd := m.Update(runes("]"))
	require.NotNil(t, cmd)
	assert.Equal(t, intent.PageMsg{View: intent.ViewActivity, Page: 2}, cmd())

	_, cmd = m.Update(runes("x"))
	require.NotNil(t, cmd)
	assert.Equal(t, intent.ResetFiltersMsg{View: intent.ViewActivity}, cmd())
}

func TestFilterFormRejectsReversedRange(t *testing.T) {
	form := newFilterForm(model.DefaultActivityFilter(), 80)
	form.fb.startDate = "2026-03-10"
	form.fb.endDate = "2026-03-01"

	_, err := form.filter()
	assert.EqualError(t, err, "start date is after end date")

	form.fb.endDate = "2026-03-31"
	f, err := form.filter()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", f.StartDate)
	assert.Equal(t, 1, f.Page)
}

func TestValidateOptionalDate(t *testing.T) {
	assert.NoError(t, validateOptionalDate(""))
	assert.NoError(t, validateOptionalDate("2026-01-31"))
	assert.Error(t, validateOptionalDate("31/01/2026"))
}
