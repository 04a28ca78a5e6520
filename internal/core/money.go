// Package core holds the domain types and the budget arithmetic: money in
// cents, category references, day windows, rollover and plant-state rules.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// maxSafeCents guards the float conversions: beyond this, float64 can no
// longer represent every cent exactly.
const maxSafeCents = int64(1) << 52

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and comma
// (12,34) separators and rejects signs, so the result is always >= 0.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// MoneyFromFloat converts a decimal amount (as it arrives in JSON) to Money,
// rounding half away from zero to whole cents.
func MoneyFromFloat(amount float64) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, ErrInvalidAmount
	}
	cents := math.Round(amount * 100)
	if cents > float64(maxSafeCents) || cents < -float64(maxSafeCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: int64(cents)}, nil
}

// Float64 returns the decimal value for JSON responses. Amounts are kept
// within the range where every cent is exactly representable.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Validate rejects non-positive amounts; used for expense entry where a zero
// or negative amount is never meaningful.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return NewValidationError("Amount must be greater than 0", "amount")
	}
	return nil
}

func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

// Round2 rounds a decimal value to 2 places, matching the rounding applied
// to balances and averages before they are serialized.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds a decimal value to 1 place (percentage fields).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
