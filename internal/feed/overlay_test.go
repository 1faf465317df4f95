package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/giftcard-console/internal/model"
)

func TestOverlayDropsOldestWhenFull(t *testing.T) {
	o := NewOverlay(3, model.NotificationID)
	base := time.Now()
	for i := 1; i <= 5; i++ {
		o.Add(notification(fmt.Sprintf("n%d", i), false), base.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, []string{"n5", "n4", "n3"}, ids(o.Items()))
}

func TestOverlayDedupesByID(t *testing.T) {
	o := NewOverlay(10, model.NotificationID)
	assert.True(t, o.Add(notification("n1", false), time.Now()))
	assert.False(t, o.Add(notification("n1", true), time.Now()))
	assert.Equal(t, 1, o.Len())
}

func TestOverlayMergeSkipsRecordsInPage(t *testing.T) {
	o := NewOverlay(10, model.NotificationID)
	now := time.Now()
	o.Add(notification("a", false), now)
	o.Add(notification("b", false), now)

	merged, extra := o.Merge([]model.Notification{notification("a", false), notification("z", true)})

	assert.Equal(t, []string{"b", "a", "z"}, ids(merged))
	assert.Equal(t, 1, extra)
}

func TestOverlayClearBefore(t *testing.T) {
	o := NewOverlay(10, model.NotificationID)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o.Add(notification("old", false), t0)
	o.Add(notification("new", false), t0.Add(2*time.Second))

	o.ClearBefore(t0.Add(time.Second))

	assert.Equal(t, []string{"new"}, ids(o.Items()))
}

func TestOverlayUpdateAndRemove(t *testing.T) {
	o := NewOverlay(10, model.NotificationID)
	o.Add(notification("n1", false), time.Now())

	assert.True(t, o.Update("n1", func(n model.Notification) model.Notification { return n.MarkRead(time.Now()) }))
	assert.True(t, o.Items()[0].IsRead)
	assert.False(t, o.Update("missing", func(n model.Notification) model.Notification { return n }))

	assert.True(t, o.Remove("n1"))
	assert.False(t, o.Has("n1"))
	assert.False(t, o.Remove("n1"))
}

func TestNewOverlayDefaultsSize(t *testing.T) {
	o := NewOverlay(0, model.NotificationID)
	for i := 0; i < 20; i++ {
		o.Add(notification(fmt.Sprintf("n%d", i), false), time.Now())
	}
	assert.Equal(t, DefaultOverlaySize, o.Len())
}
