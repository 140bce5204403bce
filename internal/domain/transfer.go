package domain

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// AmountTolerance is the absolute tolerance, in SOL, used when pairing an
// outflow with an equal-sized inflow (1/10000 of a SOL).
const AmountTolerance = 0.0001

// TransferFact is the balance delta of one account in one transaction.
//
// Sign convention: DeltaLamports = preBalance - postBalance, so a positive
// delta is an outflow and a negative delta is an inflow.
type TransferFact struct {
	Account       string
	DeltaLamports int64
}

// OutflowSOL returns the outgoing amount in SOL, or 0 if the account
// did not pay out.
func (f TransferFact) OutflowSOL() float64 {
	if f.DeltaLamports <= 0 {
		return 0
	}
	return float64(f.DeltaLamports) / LamportsPerSOL
}

// InflowSOL returns the incoming amount in SOL, or 0 if the account
// did not receive.
func (f TransferFact) InflowSOL() float64 {
	if f.DeltaLamports >= 0 {
		return 0
	}
	return float64(-f.DeltaLamports) / LamportsPerSOL
}

// TransactionAnalysis is the balance-diff view of one transaction.
// Built fresh per processed notification and discarded afterwards;
// never mutated after construction.
type TransactionAnalysis struct {
	Signature   string
	BlockTime   int64 // Unix seconds, 0 when unknown
	AccountKeys []string
	Facts       []TransferFact
}

// HasAccount reports whether the address appears in the transaction's
// account list.
func (a *TransactionAnalysis) HasAccount(address string) bool {
	for _, key := range a.AccountKeys {
		if key == address {
			return true
		}
	}
	return false
}

// OutflowSOL returns the outgoing amount in SOL for the given address,
// or 0 if the address did not pay out in this transaction.
func (a *TransactionAnalysis) OutflowSOL(address string) float64 {
	for _, f := range a.Facts {
		if f.Account == address {
			return f.OutflowSOL()
		}
	}
	return 0
}

// Recipient scans the account list, in order, for an account other than
// sender whose inflow equals amountSOL within AmountTolerance.
//
// Known limitation: when a transaction pays the same amount to several
// recipients, only the first one in account-list order is resolved.
func (a *TransactionAnalysis) Recipient(sender string, amountSOL float64) (string, bool) {
	for _, f := range a.Facts {
		if f.Account == sender {
			continue
		}
		in := f.InflowSOL()
		if in == 0 {
			continue
		}
		if diff := in - amountSOL; diff >= -AmountTolerance && diff <= AmountTolerance {
			return f.Account, true
		}
	}
	return "", false
}

// InflowSource scans the account list, in order, for an account other than
// recipient whose outflow equals amountSOL within AmountTolerance. Used to
// identify who funded a recipient in a prior transaction.
func (a *TransactionAnalysis) InflowSource(recipient string, amountSOL float64) (string, bool) {
	for _, f := range a.Facts {
		if f.Account == recipient {
			continue
		}
		out := f.OutflowSOL()
		if out == 0 {
			continue
		}
		if diff := out - amountSOL; diff >= -AmountTolerance && diff <= AmountTolerance {
			return f.Account, true
		}
	}
	return "", false
}
