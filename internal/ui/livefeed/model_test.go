package livefeed

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
)

func TestEmptyFeed(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	assert.Contains(t, m.View(), "Waiting for activity")
}

func TestCursorFollowsEntryAcrossPushes(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetClock(func() time.Time { return now })
	m.SetEntries([]model.ActivityLog{
		{ID: "b", Action: "order.created", CreatedAt: now},
		{ID: "a", Action: "merchant.approved", CreatedAt: now},
	})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	e, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", e.ID)

	m.SetEntries([]model.ActivityLog{
		{ID: "c", Action: "payment.failed", Severity: model.SeverityError, CreatedAt: now},
		{ID: "b", Action: "order.created", CreatedAt: now},
		{ID: "a", Action: "merchant.approved", CreatedAt: now},
	})
	e, _ = m.Selected()
	assert.Equal(t, "a", e.ID)
	assert.Contains(t, m.View(), "payment.failed")
	assert.Contains(t, m.View(), "3 recent")
}
