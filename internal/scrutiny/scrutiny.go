// Package scrutiny classifies a freshly paid recipient using one hop of its
// transaction history: did the money round-trip through the paying wallet
// (LOOP_DETECTED), is the recipient unfunded (FIRST_TIME_ACTIVITY), or
// neither (NONE).
package scrutiny

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/analyzer"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/observability"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/solana"
)

// Validator runs the one-hop scrutiny check. It never looks further back
// than the recipient's single most recent prior transaction.
type Validator struct {
	rpc solana.RPCClient
	log *logrus.Logger
}

// New creates a Validator.
func New(rpc solana.RPCClient, log *logrus.Logger) *Validator {
	return &Validator{rpc: rpc, log: log}
}

// Evaluate classifies the transfer from sourceAddr (labelled sourceLabel)
// to recipient. excludeSig is the signature of the triggering transaction;
// the history lookup starts strictly before it so the transfer being
// classified never counts as the recipient's own history.
//
// Transport or parse failures degrade to NONE with AlertTriggered=false and
// a diagnostic explanation. A scrutiny failure suppresses only this alert;
// it is never propagated as fatal.
func (v *Validator) Evaluate(ctx context.Context, recipient, sourceAddr, sourceLabel, excludeSig string) domain.ScrutinyResult {
	sigs, err := v.rpc.GetSignaturesForAddress(ctx, recipient, &solana.SignaturesOpts{
		Limit:  1,
		Before: excludeSig,
	})
	if err != nil {
		return v.degrade(recipient, fmt.Sprintf("signature lookup failed: %v", err))
	}

	if len(sigs) == 0 {
		return domain.ScrutinyResult{
			Condition:      domain.ConditionFirstTimeActivity,
			AlertTriggered: true,
			Explanation: fmt.Sprintf("recipient %s has no transaction history before this transfer",
				recipient),
		}
	}

	prevSig := sigs[0].Signature

	prevTx, err := v.rpc.GetTransaction(ctx, prevSig)
	if err != nil {
		return v.degrade(recipient, fmt.Sprintf("fetch of prior transaction %s failed: %v", prevSig, err))
	}

	prev := analyzer.Analyze(prevTx)
	if prev == nil {
		return v.degrade(recipient, fmt.Sprintf("prior transaction %s is missing or has no metadata", prevSig))
	}

	inflow := inflowSOL(prev, recipient)
	if inflow == 0 {
		// The recipient appears in its latest prior transaction without
		// receiving anything, so it has no identifiable prior funding.
		return domain.ScrutinyResult{
			Condition:      domain.ConditionFirstTimeActivity,
			AlertTriggered: true,
			Explanation: fmt.Sprintf("recipient %s has no inflow in its most recent prior transaction %s",
				recipient, prevSig),
		}
	}

	source, ok := prev.InflowSource(recipient, inflow)
	if !ok {
		return domain.ScrutinyResult{
			Condition:      domain.ConditionFirstTimeActivity,
			AlertTriggered: true,
			Explanation: fmt.Sprintf("no identifiable source for the %.9f SOL inflow to %s in %s",
				inflow, recipient, prevSig),
		}
	}

	if source == sourceAddr {
		return domain.ScrutinyResult{
			Condition:           domain.ConditionLoopDetected,
			AlertTriggered:      true,
			PrevInflowSource:    source,
			PrevInflowSignature: prevSig,
			Explanation: fmt.Sprintf("recipient %s was previously funded by %s (%s) in %s: funds round-tripped",
				recipient, sourceLabel, sourceAddr, prevSig),
		}
	}

	return domain.ScrutinyResult{
		Condition:           domain.ConditionNone,
		AlertTriggered:      false,
		PrevInflowSource:    source,
		PrevInflowSignature: prevSig,
		Explanation: fmt.Sprintf("recipient %s was previously funded by unrelated address %s in %s",
			recipient, source, prevSig),
	}
}

// degrade produces the NONE verdict used when history could not be
// inspected. It suppresses this alert but carries the reason along.
func (v *Validator) degrade(recipient, reason string) domain.ScrutinyResult {
	observability.RecordScrutinyDegradation()
	v.log.WithFields(logrus.Fields{
		"recipient": recipient,
		"reason":    reason,
	}).Warn("[scrutiny] degrading to NONE")

	return domain.ScrutinyResult{
		Condition:      domain.ConditionNone,
		AlertTriggered: false,
		Explanation:    "scrutiny unavailable: " + reason,
	}
}

// inflowSOL returns the recipient's inflow in the analyzed transaction,
// or 0 when it did not receive.
func inflowSOL(a *domain.TransactionAnalysis, recipient string) float64 {
	for _, f := range a.Facts {
		if f.Account == recipient {
			return f.InflowSOL()
		}
	}
	return 0
}
