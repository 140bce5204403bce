package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the tracker.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns nil (not an error) when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address,
	// newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 when unknown
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
// PreBalances and PostBalances are lamport balances parallel to the account
// key list; entries missing on the wire stay absent here and are padded to
// zero by the analyzer.
type TransactionMeta struct {
	Err          interface{}
	PreBalances  []uint64
	PostBalances []uint64
	LogMessages  []string
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature, excluding it
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}
