package alerts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

// LogSender writes alerts to the logger.
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender.
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the detection event.
func (s *LogSender) Send(ctx context.Context, event *domain.DetectionEvent) error {
	s.log.WithFields(logrus.Fields{
		"wallet":    event.WalletLabel,
		"signature": shorten(event.Signature),
		"recipient": shorten(event.RecipientAddress),
		"sol":       event.OutgoingSOL,
		"range":     [2]float64{event.MatchedRange.Min, event.MatchedRange.Max},
		"condition": event.Scrutiny.Condition,
		"alert":     event.Scrutiny.AlertTriggered,
	}).Info("Detection event")
	return nil
}

var _ Sender = (*LogSender)(nil)
