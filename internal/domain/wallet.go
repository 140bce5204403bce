package domain

// Range is an inclusive amount interval in SOL. Invariant: Min <= Max.
type Range struct {
	Min float64
	Max float64
}

// WalletWatch describes one monitored exchange wallet.
// Immutable after configuration load; owned by the coordinator.
type WalletWatch struct {
	// Label is the human-readable name shown in alerts (e.g. "binance-hot-1").
	Label string

	// Address is the base58 wallet address.
	Address string

	// Ranges are the outgoing-amount intervals worth alerting on,
	// kept in declaration order.
	Ranges []Range
}
