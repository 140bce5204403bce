package domain

import "time"

// DetectionEvent is the unit handed to the alerting and journaling
// collaborators. Each event ties to exactly one transaction signature
// and one configured wallet.
type DetectionEvent struct {
	Timestamp        time.Time
	Signature        string
	WalletLabel      string
	WalletAddress    string
	RecipientAddress string
	OutgoingSOL      float64
	MatchedRange     Range
	Scrutiny         ScrutinyResult
}
