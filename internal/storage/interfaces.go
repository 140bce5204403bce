package storage

import (
	"context"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

// EventStore provides access to the append-only detection event journal.
type EventStore interface {
	// Insert adds a new detection event. Returns ErrDuplicateKey if an
	// event for (signature, wallet_address) already exists.
	Insert(ctx context.Context, e *domain.DetectionEvent) error

	// GetBySignature retrieves all events recorded for a signature.
	GetBySignature(ctx context.Context, signature string) ([]*domain.DetectionEvent, error)

	// GetByWallet retrieves the most recent events for a wallet address,
	// newest first, up to limit (0 means no limit).
	GetByWallet(ctx context.Context, walletAddress string, limit int) ([]*domain.DetectionEvent, error)
}
