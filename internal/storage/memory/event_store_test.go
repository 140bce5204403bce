package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
)

func event(sig, wallet string, ts time.Time) *domain.DetectionEvent {
	return &domain.DetectionEvent{
		Timestamp:        ts,
		Signature:        sig,
		WalletLabel:      "cex-1",
		WalletAddress:    wallet,
		RecipientAddress: "recipient",
		OutgoingSOL:      14.2,
		MatchedRange:     domain.Range{Min: 10, Max: 20},
		Scrutiny: domain.ScrutinyResult{
			Condition:      domain.ConditionFirstTimeActivity,
			AlertTriggered: true,
		},
	}
}

func TestEventStore_InsertAndGet(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	now := time.Now()
	if err := store.Insert(ctx, event("sig1", "walletA", now)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].WalletAddress != "walletA" {
		t.Errorf("unexpected wallet %s", got[0].WalletAddress)
	}
}

func TestEventStore_DuplicateKey(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	now := time.Now()
	if err := store.Insert(ctx, event("sig1", "walletA", now)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := store.Insert(ctx, event("sig1", "walletA", now))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Same signature for a different wallet is a distinct event.
	if err := store.Insert(ctx, event("sig1", "walletB", now)); err != nil {
		t.Errorf("Insert for other wallet: %v", err)
	}
}

func TestEventStore_GetByWallet_NewestFirst(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	base := time.Now()
	store.Insert(ctx, event("sig1", "walletA", base))
	store.Insert(ctx, event("sig2", "walletA", base.Add(time.Minute)))
	store.Insert(ctx, event("sig3", "walletB", base.Add(2*time.Minute)))

	got, err := store.GetByWallet(ctx, "walletA", 0)
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Signature != "sig2" || got[1].Signature != "sig1" {
		t.Errorf("expected newest first, got %s then %s", got[0].Signature, got[1].Signature)
	}

	limited, err := store.GetByWallet(ctx, "walletA", 1)
	if err != nil {
		t.Fatalf("GetByWallet limited: %v", err)
	}
	if len(limited) != 1 || limited[0].Signature != "sig2" {
		t.Errorf("expected only sig2, got %v", limited)
	}
}

func TestEventStore_InsertNil(t *testing.T) {
	store := NewEventStore()

	err := store.Insert(context.Background(), nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
