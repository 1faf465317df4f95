package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// Themes lists the names accepted by Use.
var Themes = []string{"default", "mono"}

// Styles shared by every view. Use rebuilds them.
var (
	HeaderStyle       lipgloss.Style
	StatusBarStyle    lipgloss.Style
	PanelStyle        lipgloss.Style
	ListItemStyle     lipgloss.Style
	SelectedItemStyle lipgloss.Style
	HelpStyle         lipgloss.Style
	BorderStyle       lipgloss.Style
	DimmedStyle       lipgloss.Style
	TitleStyle        lipgloss.Style
	EmptyStyle        lipgloss.Style
	ToastStyle        lipgloss.Style
	ErrorToastStyle   lipgloss.Style
	BadgeStyle        lipgloss.Style
)

var mono bool

func init() {
	build()
}

// Use switches the active theme.
func Use(name string) error {
	switch name {
	case "", "default":
		mono = false
	case "mono":
		mono = true
	default:
		return fmt.Errorf("unknown theme %q", name)
	}
	build()
	return nil
}

// color returns c, or the plain foreground in the mono theme.
func color(c lipgloss.AdaptiveColor) lipgloss.TerminalColor {
	if mono {
		return lipgloss.NoColor{}
	}
	return c
}

func build() {
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(color(ColorWhite)).
		Background(color(ColorBlue)).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(color(ColorWhite)).
		Background(color(ColorSubtle)).
		Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(ColorBorder))

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(color(ColorBlue)).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(color(ColorBlue))

	HelpStyle = lipgloss.NewStyle().
		Foreground(color(ColorGray)).
		Italic(true)

	BorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(ColorBorder))

	DimmedStyle = lipgloss.NewStyle().
		Foreground(color(ColorGray))

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(color(ColorWhite)).
		MarginBottom(1)

	EmptyStyle = lipgloss.NewStyle().
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(color(ColorGray))

	ToastStyle = lipgloss.NewStyle().
		Foreground(color(ColorWhite)).
		Background(color(ColorGreen)).
		Padding(0, 1)

	ErrorToastStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(color(ColorWhite)).
		Background(color(ColorRed)).
		Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(color(ColorWhite)).
		Background(color(ColorRed)).
		Padding(0, 1)
}

// ConnectionStyle returns a color-coded style for a connection status.
func ConnectionStyle(status model.ConnectionStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case model.ConnectionConnected:
		return base.Foreground(color(ColorGreen))
	case model.ConnectionConnecting:
		return base.Foreground(color(ColorYellow))
	case model.ConnectionError:
		return base.Foreground(color(ColorRed))
	default:
		return base.Foreground(color(ColorGray))
	}
}

// SeverityStyle returns a color-coded style for an activity severity.
func SeverityStyle(severity model.ActivitySeverity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch severity {
	case model.SeverityCritical:
		return base.Foreground(color(ColorMagenta))
	case model.SeverityError:
		return base.Foreground(color(ColorRed))
	case model.SeverityWarning:
		return base.Foreground(color(ColorOrange))
	default:
		return base.Foreground(color(ColorBlue))
	}
}

// NotificationTypeStyle returns a color-coded style for a notification
// type label.
func NotificationTypeStyle(t model.NotificationType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch t {
	case model.NotificationOrderCreated, model.NotificationOrderCompleted:
		return base.Foreground(color(ColorBlue))
	case model.NotificationGiftCardRedeemed, model.NotificationPayoutProcessed:
		return base.Foreground(color(ColorGreen))
	case model.NotificationGiftCardExpiring, model.NotificationMerchantPending:
		return base.Foreground(color(ColorYellow))
	case model.NotificationMerchantRejected:
		return base.Foreground(color(ColorRed))
	case model.NotificationMerchantApproved:
		return base.Foreground(color(ColorMagenta))
	default:
		return base.Foreground(color(ColorGray))
	}
}
