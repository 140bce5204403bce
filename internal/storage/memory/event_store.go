package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
)

// eventKey is the composite key for detection event deduplication.
type eventKey struct {
	Signature     string
	WalletAddress string
}

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data []*domain.DetectionEvent
	keys map[eventKey]bool
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make([]*domain.DetectionEvent, 0),
		keys: make(map[eventKey]bool),
	}
}

// Insert adds a new detection event. Returns ErrDuplicateKey if
// (signature, wallet_address) exists.
func (s *EventStore) Insert(_ context.Context, e *domain.DetectionEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	key := eventKey{Signature: e.Signature, WalletAddress: e.WalletAddress}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	// Store a copy
	copy := *e
	s.data = append(s.data, &copy)
	s.keys[key] = true

	return nil
}

// GetBySignature retrieves all events recorded for a signature.
func (s *EventStore) GetBySignature(_ context.Context, signature string) ([]*domain.DetectionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DetectionEvent
	for _, e := range s.data {
		if e.Signature == signature {
			copy := *e
			result = append(result, &copy)
		}
	}

	return result, nil
}

// GetByWallet retrieves the most recent events for a wallet, newest first.
func (s *EventStore) GetByWallet(_ context.Context, walletAddress string, limit int) ([]*domain.DetectionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DetectionEvent
	for _, e := range s.data {
		if e.WalletAddress == walletAddress {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
