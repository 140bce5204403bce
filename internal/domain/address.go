package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that s is a plausible Solana address: base58 text
// decoding to exactly 32 bytes. Program-derived addresses are off the
// ed25519 curve, so curve membership is not required here; use IsOnCurve
// when a wallet (as opposed to a PDA) is expected.
func ValidateAddress(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", s, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e. a
// keypair-backed wallet rather than a program-derived address.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
