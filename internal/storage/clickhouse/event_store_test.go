package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
)

func testEvent(sig, wallet string, ts time.Time) *domain.DetectionEvent {
	return &domain.DetectionEvent{
		Timestamp:        ts,
		Signature:        sig,
		WalletLabel:      "cex-1",
		WalletAddress:    wallet,
		RecipientAddress: "Recipient1111111111111111111111111111111111",
		OutgoingSOL:      7.5,
		MatchedRange:     domain.Range{Min: 5, Max: 10},
		Scrutiny: domain.ScrutinyResult{
			Condition:      domain.ConditionFirstTimeActivity,
			AlertTriggered: true,
			Explanation:    "recipient has no prior history",
		},
	}
}

func TestEventStore_InsertAndGetBySignature(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Insert(ctx, testEvent("sig1", "walletA", now)))

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, "sig1", e.Signature)
	assert.Equal(t, "cex-1", e.WalletLabel)
	assert.Equal(t, "walletA", e.WalletAddress)
	assert.Equal(t, 7.5, e.OutgoingSOL)
	assert.Equal(t, domain.Range{Min: 5, Max: 10}, e.MatchedRange)
	assert.Equal(t, domain.ConditionFirstTimeActivity, e.Scrutiny.Condition)
	assert.True(t, e.Scrutiny.AlertTriggered)
	assert.WithinDuration(t, now, e.Timestamp, time.Millisecond)
}

func TestEventStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, testEvent("sig1", "walletA", now)))

	err := store.Insert(ctx, testEvent("sig1", "walletA", now))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same signature, different wallet: allowed.
	assert.NoError(t, store.Insert(ctx, testEvent("sig1", "walletB", now)))
}

func TestEventStore_GetByWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Insert(ctx, testEvent("sig1", "walletA", base)))
	require.NoError(t, store.Insert(ctx, testEvent("sig2", "walletA", base.Add(time.Minute))))
	require.NoError(t, store.Insert(ctx, testEvent("sig3", "walletB", base)))

	got, err := store.GetByWallet(ctx, "walletA", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sig2", got[0].Signature)
	assert.Equal(t, "sig1", got[1].Signature)

	limited, err := store.GetByWallet(ctx, "walletA", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "sig2", limited[0].Signature)
}
