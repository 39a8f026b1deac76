package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Fraction represents a rate between 0 and 1 inclusive, e.g. a royalty of
// 15/100. Numerator and denominator are kept separate so that applying the
// rate to an amount never goes through floating point.
type Fraction struct {
	Num uint32 `json:"num" gorm:"column:num"`
	Den uint32 `json:"den" gorm:"column:den"`
}

// ParseFraction parses the "num/den" wire format
func ParseFraction(s string) (Fraction, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Fraction{}, fmt.Errorf("invalid fraction %q: expected num/den", s)
	}

	num, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction numerator %q: %w", parts[0], err)
	}
	den, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction denominator %q: %w", parts[1], err)
	}

	return Fraction{Num: uint32(num), Den: uint32(den)}, nil
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// Check verifies the fraction is well formed: a positive denominator and a
// value not greater than 1. Fractions coming off the wire must be checked
// before any arithmetic uses them.
func (f Fraction) Check() error {
	if f.Den == 0 {
		return ErrZeroDenominatorFraction()
	}
	if f.Num > f.Den {
		return ErrFractionGreaterThanOne()
	}
	return nil
}

// IsZero reports whether the fraction evaluates to zero
func (f Fraction) IsZero() bool {
	return f.Num == 0
}

// Mult applies the fraction to an amount, rounding down. The intermediate
// product is computed in 512 bits so amounts close to 2^256 cannot overflow.
func (f Fraction) Mult(amount *uint256.Int) *uint256.Int {
	num := uint256.NewInt(uint64(f.Num))
	den := uint256.NewInt(uint64(f.Den))
	// num <= den, so the quotient never exceeds amount and cannot overflow
	result, _ := new(uint256.Int).MulDivOverflow(amount, num, den)
	return result
}

// Cmp compares two fractions by value, returning -1, 0 or +1. Both sides
// must already satisfy Check. Cross products of two uint32s fit in uint64.
func (f Fraction) Cmp(other Fraction) int {
	left := uint64(f.Num) * uint64(other.Den)
	right := uint64(other.Num) * uint64(f.Den)
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

// SumExceedsOne reports whether f + other > 1. Used to verify that a
// royalty and the platform fee never claim more than the full sale price.
func (f Fraction) SumExceedsOne(other Fraction) bool {
	sum := uint64(f.Num)*uint64(other.Den) + uint64(other.Num)*uint64(f.Den)
	return sum > uint64(f.Den)*uint64(other.Den)
}
