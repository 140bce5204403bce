package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
//
// ClickHouse does not enforce uniqueness at insert time, so Insert checks
// for an existing (signature, wallet_address) row before writing. The
// ReplacingMergeTree engine collapses any row that slips past the check
// during a background merge.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert adds a new detection event. Returns ErrDuplicateKey if
// (signature, wallet_address) exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.DetectionEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.Signature, e.WalletAddress)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO detection_events (
			signature, wallet_label, wallet_address, recipient_address,
			outgoing_sol, range_min, range_max,
			condition, alert_triggered, prev_inflow_source, prev_inflow_signature,
			explanation, detected_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var alertTriggered uint8
	if e.Scrutiny.AlertTriggered {
		alertTriggered = 1
	}

	err = batch.Append(
		e.Signature, e.WalletLabel, e.WalletAddress, e.RecipientAddress,
		e.OutgoingSOL, e.MatchedRange.Min, e.MatchedRange.Max,
		string(e.Scrutiny.Condition), alertTriggered,
		e.Scrutiny.PrevInflowSource, e.Scrutiny.PrevInflowSignature,
		e.Scrutiny.Explanation, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves all events recorded for a signature.
func (s *EventStore) GetBySignature(ctx context.Context, signature string) ([]*domain.DetectionEvent, error) {
	query := selectEvents + `
		WHERE signature = ?
		ORDER BY wallet_address ASC
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByWallet retrieves the most recent events for a wallet, newest first.
// A limit of zero or less returns all events.
func (s *EventStore) GetByWallet(ctx context.Context, walletAddress string, limit int) ([]*domain.DetectionEvent, error) {
	query := selectEvents + `
		WHERE wallet_address = ?
		ORDER BY detected_at DESC, signature ASC
	`
	args := []interface{}{walletAddress}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by wallet: %w", err)
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

// exists checks if an event with the given key exists.
func (s *EventStore) exists(ctx context.Context, signature, walletAddress string) (bool, error) {
	query := `
		SELECT count(*) FROM detection_events
		WHERE signature = ? AND wallet_address = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, signature, walletAddress).Scan(&count); err != nil {
		return false, fmt.Errorf("query count: %w", err)
	}
	return count > 0, nil
}

// scanEvents reads detection event rows.
func scanEvents(rows driver.Rows) ([]*domain.DetectionEvent, error) {
	var events []*domain.DetectionEvent

	for rows.Next() {
		var e domain.DetectionEvent
		var condition string
		var alertTriggered uint8
		if err := rows.Scan(
			&e.Signature,
			&e.WalletLabel,
			&e.WalletAddress,
			&e.RecipientAddress,
			&e.OutgoingSOL,
			&e.MatchedRange.Min,
			&e.MatchedRange.Max,
			&condition,
			&alertTriggered,
			&e.Scrutiny.PrevInflowSource,
			&e.Scrutiny.PrevInflowSignature,
			&e.Scrutiny.Explanation,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		e.Scrutiny.Condition = domain.Condition(condition)
		e.Scrutiny.AlertTriggered = alertTriggered != 0
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection events: %w", err)
	}

	return events, nil
}
