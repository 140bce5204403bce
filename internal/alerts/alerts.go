// Package alerts delivers DetectionEvents to their destinations. Network
// delivery (Telegram, Discord) lives behind the Sender interface; the
// tracker core only knows this interface.
package alerts

import (
	"context"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

// Sender delivers one detection event.
type Sender interface {
	Send(ctx context.Context, event *domain.DetectionEvent) error
}

// shorten trims an address or signature for display.
func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
