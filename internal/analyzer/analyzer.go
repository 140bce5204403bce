// Package analyzer turns a raw transaction record into per-account balance
// deltas the rest of the pipeline reasons about.
package analyzer

import (
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/solana"
)

// Analyze computes per-account balance deltas for a transaction.
//
// Returns nil when the transaction is missing or carries no metadata or
// account keys; that is the normal outcome for unconfirmed or pruned
// signatures, not an error.
//
// Balance arrays shorter than the account list are padded with zero
// lamports by contract, so a late-appended account reads as holding
// nothing rather than being skipped.
func Analyze(tx *solana.Transaction) *domain.TransactionAnalysis {
	if tx == nil || tx.Meta == nil || tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return nil
	}

	keys := tx.Message.AccountKeys
	analysis := &domain.TransactionAnalysis{
		Signature:   tx.Signature,
		BlockTime:   tx.BlockTime,
		AccountKeys: keys,
		Facts:       make([]domain.TransferFact, 0, len(keys)),
	}

	for i, key := range keys {
		pre := balanceAt(tx.Meta.PreBalances, i)
		post := balanceAt(tx.Meta.PostBalances, i)

		delta := int64(pre) - int64(post)
		if delta == 0 {
			continue
		}

		analysis.Facts = append(analysis.Facts, domain.TransferFact{
			Account:       key,
			DeltaLamports: delta,
		})
	}

	return analysis
}

func balanceAt(balances []uint64, i int) uint64 {
	if i >= len(balances) {
		return 0
	}
	return balances[i]
}
