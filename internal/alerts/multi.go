package alerts

import (
	"context"
	"errors"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

// MultiSender fans an event out to several senders. Every sender is tried;
// failures are joined rather than short-circuiting delivery.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a sender that delivers to all given senders.
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

// Send delivers the event to every configured sender.
func (m *MultiSender) Send(ctx context.Context, event *domain.DetectionEvent) error {
	var errs []error
	for _, s := range m.senders {
		if err := s.Send(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sender = (*MultiSender)(nil)
