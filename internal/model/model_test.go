package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)
	assert.Equal(t, "/admin", r.Namespace())

	_, err = ParseRole("customer")
	assert.Error(t, err)
}

func TestCanReconnect(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   bool
	}{
		{ConnectionDisconnected, true},
		{ConnectionError, true},
		{ConnectionConnecting, false},
		{ConnectionConnected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.CanReconnect())
		})
	}
}

func TestNotificationMarkReadKeepsFirstReadAt(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := Notification{ID: "n1"}.MarkRead(first)
	require.True(t, n.IsRead)

	again := n.MarkRead(first.Add(time.Hour))
	assert.Equal(t, first, *again.ReadAt)
}

func TestCountUnread(t *testing.T) {
	items := []Notification{{ID: "a"}, {ID: "b", IsRead: true}, {ID: "c"}}
	assert.Equal(t, 2, CountUnread(items))
	assert.Zero(t, CountUnread(nil))
}

func TestFilterNormalize(t *testing.T) {
	f := NotificationFilter{Page: -3, Limit: 1000}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.Limit)

	assert.Equal(t, DefaultNotificationFilter(), NotificationFilter{}.Normalize())
	assert.Equal(t, DefaultActivityFilter(), ActivityFilter{}.Normalize())
}

func TestIsDefaultFirstPage(t *testing.T) {
	assert.True(t, DefaultNotificationFilter().IsDefaultFirstPage())
	assert.False(t, NotificationFilter{Page: 2}.IsDefaultFirstPage())
	assert.False(t, NotificationFilter{UnreadOnly: true}.IsDefaultFirstPage())
	assert.False(t, ActivityFilter{StartDate: "2026-01-01"}.IsDefaultFirstPage())
	assert.True(t, ActivityFilter{Limit: 50}.IsDefaultFirstPage())
}

func TestTotalPagesFor(t *testing.T) {
	assert.Equal(t, 0, TotalPagesFor(0, 20))
	assert.Equal(t, 1, TotalPagesFor(20, 20))
	assert.Equal(t, 3, TotalPagesFor(45, 20))
	assert.Equal(t, 0, TotalPagesFor(10, 0))
}

func TestPreferencesMuted(t *testing.T) {
	p := NotificationPreferences{MutedTypes: []NotificationType{NotificationSystem}}
	assert.True(t, p.Muted(NotificationSystem))
	assert.False(t, p.Muted(NotificationOrderCreated))
}
