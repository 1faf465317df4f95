// Package bell renders the unread badge shown in the header.
package bell

import (
	"strconv"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui/status"
)

// MaxShown is the largest count printed in full.
const MaxShown = 99

// Count formats an unread count for the badge. Zero renders nothing.
func Count(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > MaxShown:
		return strconv.Itoa(MaxShown) + "+"
	default:
		return strconv.Itoa(n)
	}
}

// Render draws the bell with its unread badge and the connection badge.
// known is false until the first count arrives.
func Render(count int, known bool, conn model.ConnectionStatus) string {
	out := "🔔"
	if label := Count(count); known && label != "" {
		out += " " + theme.BadgeStyle.Render(label)
	}
	return out + "  " + status.Badge(conn)
}
