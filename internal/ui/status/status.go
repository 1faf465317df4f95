// Package status renders the realtime connection badge.
package status

import (
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
)

// Label returns the short word shown for status.
func Label(status model.ConnectionStatus) string {
	switch status {
	case model.ConnectionConnected:
		return "live"
	case model.ConnectionConnecting:
		return "connecting"
	case model.ConnectionError:
		return "error"
	default:
		return "disconnected"
	}
}

// Dot returns the indicator glyph for status.
func Dot(status model.ConnectionStatus) string {
	switch status {
	case model.ConnectionConnected:
		return "●"
	case model.ConnectionConnecting:
		return "◌"
	default:
		return "○"
	}
}

// Badge renders the colored indicator and label.
func Badge(status model.ConnectionStatus) string {
	return theme.ConnectionStyle(status).Render(Dot(status) + " " + Label(status))
}

// Hint returns the reconnect affordance, which is offered only when the
// connection is down. errText is the last transport error.
func Hint(status model.ConnectionStatus, errText string) string {
	if !status.CanReconnect() {
		return ""
	}
	if status == model.ConnectionError && errText != "" {
		return ui.Truncate(errText, 60) + " · R reconnect"
	}
	return "R reconnect"
}
