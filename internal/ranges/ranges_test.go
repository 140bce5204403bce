package ranges

import (
	"errors"
	"testing"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
)

func TestMatches_InclusiveBounds(t *testing.T) {
	rs := []domain.Range{{Min: 10, Max: 20}}

	cases := []struct {
		amount float64
		want   bool
	}{
		{10, true},
		{20, true},
		{14.2, true},
		{9.9999, false},
		{20.0001, false},
	}

	for _, c := range cases {
		if got := Matches(c.amount, rs); got != c.want {
			t.Errorf("Matches(%v) = %v, want %v", c.amount, got, c.want)
		}
	}
}

func TestFirstMatch_DeclarationOrder(t *testing.T) {
	rs, err := Parse("13-15,14-26")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(rs) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(rs))
	}

	// 14 is inside both ranges; the first declared one wins.
	r, ok := FirstMatch(14, rs)
	if !ok {
		t.Fatal("expected a match for 14")
	}
	if r.Min != 13 || r.Max != 15 {
		t.Errorf("expected range 13-15, got %v-%v", r.Min, r.Max)
	}
}

func TestFirstMatch_NoMatch(t *testing.T) {
	rs := []domain.Range{{Min: 1, Max: 2}, {Min: 5, Max: 6}}

	if _, ok := FirstMatch(3, rs); ok {
		t.Error("expected no match for 3")
	}
}

func TestParse(t *testing.T) {
	rs, err := Parse("0.5-1.5, 40-60")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []domain.Range{{Min: 0.5, Max: 1.5}, {Min: 40, Max: 60}}
	for i, r := range rs {
		if r != want[i] {
			t.Errorf("range %d: got %v, want %v", i, r, want[i])
		}
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	for _, s := range []string{"abc-10", "10-xyz", "10", ""} {
		_, err := Parse(s)
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Parse(%q): expected ErrInvalidFormat, got %v", s, err)
		}
	}
}

func TestParse_InvalidBounds(t *testing.T) {
	_, err := Parse("20-10")
	if !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("expected ErrInvalidBounds, got %v", err)
	}
}
