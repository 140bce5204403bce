package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert adds a new detection event. Returns ErrDuplicateKey if
// (signature, wallet_address) exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.DetectionEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO detection_events (
			signature, wallet_label, wallet_address, recipient_address,
			outgoing_sol, range_min, range_max,
			condition, alert_triggered, prev_inflow_source, prev_inflow_signature,
			explanation, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Signature,
		e.WalletLabel,
		e.WalletAddress,
		e.RecipientAddress,
		e.OutgoingSOL,
		e.MatchedRange.Min,
		e.MatchedRange.Max,
		string(e.Scrutiny.Condition),
		e.Scrutiny.AlertTriggered,
		e.Scrutiny.PrevInflowSource,
		e.Scrutiny.PrevInflowSignature,
		e.Scrutiny.Explanation,
		e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert detection event: %w", err)
	}
	return nil
}

// GetBySignature retrieves all events recorded for a signature.
func (s *EventStore) GetBySignature(ctx context.Context, signature string) ([]*domain.DetectionEvent, error) {
	query := selectEvents + `
		WHERE signature = $1
		ORDER BY wallet_address ASC
	`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get detection events by signature: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByWallet retrieves the most recent events for a wallet, newest first.
func (s *EventStore) GetByWallet(ctx context.Context, walletAddress string, limit int) ([]*domain.DetectionEvent, error) {
	query := selectEvents + `
		WHERE wallet_address = $1
		ORDER BY detected_at DESC, signature ASC
	`
	args := []interface{}{walletAddress}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get detection events by wallet: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

const selectEvents = `
	SELECT signature, wallet_label, wallet_address, recipient_address,
	       outgoing_sol, range_min, range_max,
	       condition, alert_triggered, prev_inflow_source, prev_inflow_signature,
	       explanation, detected_at
	FROM detection_events
`

// scanEvents reads detection event rows.
func scanEvents(rows pgx.Rows) ([]*domain.DetectionEvent, error) {
	var events []*domain.DetectionEvent

	for rows.Next() {
		var e domain.DetectionEvent
		var condition string
		if err := rows.Scan(
			&e.Signature,
			&e.WalletLabel,
			&e.WalletAddress,
			&e.RecipientAddress,
			&e.OutgoingSOL,
			&e.MatchedRange.Min,
			&e.MatchedRange.Max,
			&condition,
			&e.Scrutiny.AlertTriggered,
			&e.Scrutiny.PrevInflowSource,
			&e.Scrutiny.PrevInflowSignature,
			&e.Scrutiny.Explanation,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		e.Scrutiny.Condition = domain.Condition(condition)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection events: %w", err)
	}

	return events, nil
}
