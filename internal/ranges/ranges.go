// Package ranges matches transfer amounts against configured inclusive
// intervals and parses the "min-max,min-max" configuration form.
package ranges

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

var (
	// ErrInvalidFormat is returned when a range bound is not numeric.
	ErrInvalidFormat = errors.New("invalid range format")

	// ErrInvalidBounds is returned when a range has min > max.
	ErrInvalidBounds = errors.New("invalid range bounds: min > max")
)

// Matches reports whether amount falls inside any range.
// Both bounds are inclusive.
func Matches(amount float64, rs []domain.Range) bool {
	_, ok := FirstMatch(amount, rs)
	return ok
}

// FirstMatch returns the first range, in declaration order, that contains
// amount. Overlapping ranges are not re-ranked.
func FirstMatch(amount float64, rs []domain.Range) (domain.Range, bool) {
	for _, r := range rs {
		if amount >= r.Min && amount <= r.Max {
			return r, true
		}
	}
	return domain.Range{}, false
}

// Parse parses a comma-separated list of "min-max" ranges, e.g. "13-15,40-60".
// Declaration order is preserved.
func Parse(s string) ([]domain.Range, error) {
	parts := strings.Split(s, ",")
	rs := make([]domain.Range, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, part)
		}

		min, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, part)
		}
		max, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, part)
		}

		if min > max {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBounds, part)
		}

		rs = append(rs, domain.Range{Min: min, Max: max})
	}

	return rs, nil
}
