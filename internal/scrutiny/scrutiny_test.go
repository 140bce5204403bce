package scrutiny

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/observability"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/solana"
)

// fakeRPC serves canned signature histories and transactions.
type fakeRPC struct {
	sigsByAddr map[string][]solana.SignatureInfo
	txBySig    map[string]*solana.Transaction
	sigsErr    error
	txErr      error
}

func (f *fakeRPC) GetTransaction(_ context.Context, sig string) (*solana.Transaction, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.txBySig[sig], nil
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, addr string, _ *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if f.sigsErr != nil {
		return nil, f.sigsErr
	}
	return f.sigsByAddr[addr], nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

const (
	cexWallet  = "CexHotWallet1111111111111111111111111111111"
	recipient  = "Recipient1111111111111111111111111111111111"
	thirdParty = "ThirdParty111111111111111111111111111111111"
)

// fundingTx builds a prior transaction where `from` paid `to` the given
// amount in SOL.
func fundingTx(sig, from, to string, sol float64) *solana.Transaction {
	lamports := uint64(sol * domain.LamportsPerSOL)
	return &solana.Transaction{
		Signature: sig,
		BlockTime: 1690000000,
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{lamports * 2, 0},
			PostBalances: []uint64{lamports, lamports},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{from, to}},
	}
}

func TestEvaluate_FirstTimeActivity_NoHistory(t *testing.T) {
	rpc := &fakeRPC{sigsByAddr: map[string][]solana.SignatureInfo{}}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionFirstTimeActivity {
		t.Errorf("expected FIRST_TIME_ACTIVITY, got %s", res.Condition)
	}
	if !res.AlertTriggered {
		t.Error("expected alert to trigger")
	}
}

func TestEvaluate_LoopDetected(t *testing.T) {
	rpc := &fakeRPC{
		sigsByAddr: map[string][]solana.SignatureInfo{
			recipient: {{Signature: "prev-sig"}},
		},
		txBySig: map[string]*solana.Transaction{
			"prev-sig": fundingTx("prev-sig", cexWallet, recipient, 7.5),
		},
	}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionLoopDetected {
		t.Errorf("expected LOOP_DETECTED, got %s (%s)", res.Condition, res.Explanation)
	}
	if !res.AlertTriggered {
		t.Error("expected alert to trigger")
	}
	if res.PrevInflowSource != cexWallet {
		t.Errorf("expected source %s, got %s", cexWallet, res.PrevInflowSource)
	}
	if res.PrevInflowSignature != "prev-sig" {
		t.Errorf("expected prev-sig, got %s", res.PrevInflowSignature)
	}
}

func TestEvaluate_None_ThirdPartyFunding(t *testing.T) {
	rpc := &fakeRPC{
		sigsByAddr: map[string][]solana.SignatureInfo{
			recipient: {{Signature: "prev-sig"}},
		},
		txBySig: map[string]*solana.Transaction{
			"prev-sig": fundingTx("prev-sig", thirdParty, recipient, 7.5),
		},
	}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionNone {
		t.Errorf("expected NONE, got %s", res.Condition)
	}
	if res.AlertTriggered {
		t.Error("expected no alert")
	}
	if res.PrevInflowSource != thirdParty {
		t.Errorf("expected source %s, got %s", thirdParty, res.PrevInflowSource)
	}
}

func TestEvaluate_FirstTimeActivity_NoInflowInPriorTx(t *testing.T) {
	// Prior transaction exists but the recipient only paid out in it.
	prior := &solana.Transaction{
		Signature: "prev-sig",
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{5_000_000_000, 0},
			PostBalances: []uint64{4_000_000_000, 1_000_000_000},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{recipient, thirdParty}},
	}

	rpc := &fakeRPC{
		sigsByAddr: map[string][]solana.SignatureInfo{
			recipient: {{Signature: "prev-sig"}},
		},
		txBySig: map[string]*solana.Transaction{"prev-sig": prior},
	}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionFirstTimeActivity {
		t.Errorf("expected FIRST_TIME_ACTIVITY, got %s", res.Condition)
	}
	if !res.AlertTriggered {
		t.Error("expected alert to trigger")
	}
}

func TestEvaluate_DegradesToNoneOnLookupError(t *testing.T) {
	degradationsBefore := testutil.ToFloat64(observability.DefaultMetrics.ScrutinyDegradations)
	rpc := &fakeRPC{sigsErr: fmt.Errorf("rpc down")}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionNone {
		t.Errorf("expected NONE, got %s", res.Condition)
	}
	if res.AlertTriggered {
		t.Error("degraded verdict must not trigger an alert")
	}
	if res.Explanation == "" {
		t.Error("expected a diagnostic explanation")
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.ScrutinyDegradations); got != degradationsBefore+1 {
		t.Errorf("expected the degradation counter to advance by 1, got %v (was %v)", got, degradationsBefore)
	}
}

func TestEvaluate_DegradesToNoneOnFetchError(t *testing.T) {
	rpc := &fakeRPC{
		sigsByAddr: map[string][]solana.SignatureInfo{
			recipient: {{Signature: "prev-sig"}},
		},
		txErr: fmt.Errorf("timeout"),
	}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionNone {
		t.Errorf("expected NONE, got %s", res.Condition)
	}
	if res.AlertTriggered {
		t.Error("degraded verdict must not trigger an alert")
	}
}

func TestEvaluate_DegradesToNoneOnMissingPriorTx(t *testing.T) {
	rpc := &fakeRPC{
		sigsByAddr: map[string][]solana.SignatureInfo{
			recipient: {{Signature: "pruned-sig"}},
		},
		txBySig: map[string]*solana.Transaction{},
	}
	v := New(rpc, testLogger())

	res := v.Evaluate(context.Background(), recipient, cexWallet, "cex-1", "trigger-sig")

	if res.Condition != domain.ConditionNone {
		t.Errorf("expected NONE, got %s", res.Condition)
	}
	if res.AlertTriggered {
		t.Error("degraded verdict must not trigger an alert")
	}
}
