// Package desktop raises terminal-level desktop notifications for pushed
// notifications and activity entries.
package desktop

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/logging"
)

// ErrNotPermitted is returned by Notify before permission was granted.
var ErrNotPermitted = errors.New("desktop notifications not permitted")

// maxLen bounds the text of one notification.
const maxLen = 240

// Notifier writes OSC 9 escape sequences, which terminals such as iTerm2,
// kitty, WezTerm and Windows Terminal turn into system notifications.
type Notifier struct {
	out     io.Writer
	enabled bool
	logger  *zap.Logger

	once    sync.Once
	mu      sync.Mutex
	granted bool
}

// New creates a notifier. enabled is the configured permission; nothing
// is shown until RequestPermission is called.
func New(enabled bool, out io.Writer, logger *zap.Logger) *Notifier {
	if out == nil {
		out = os.Stderr
	}
	return &Notifier{out: out, enabled: enabled, logger: logging.OrNop(logger)}
}

// RequestPermission resolves permission once and reports the result.
// Later calls return the first answer.
func (n *Notifier) RequestPermission() bool {
	n.once.Do(func() {
		n.mu.Lock()
		n.granted = n.enabled
		n.mu.Unlock()
		n.logger.Debug("desktop notification permission", zap.Bool("granted", n.enabled))
	})
	return n.Granted()
}

// Granted reports whether notifications may be shown.
func (n *Notifier) Granted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.granted
}

// Notify shows one notification.
func (n *Notifier) Notify(title, message string) error {
	if !n.Granted() {
		return ErrNotPermitted
	}

	text := sanitize(title)
	if body := sanitize(message); body != "" {
		if text != "" {
			text += ": "
		}
		text += body
	}
	if text == "" {
		return nil
	}
	if r := []rune(text); len(r) > maxLen {
		text = string(r[:maxLen-1]) + "…"
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.out, "\x1b]9;%s\x07", text); err != nil {
		return fmt.Errorf("writing desktop notification: %w", err)
	}
	return nil
}

// sanitize drops control characters that would end the escape sequence
// early and collapses whitespace.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
