// Package money provides the Price, Quantity, and PnL value objects shared
// across the trading core. All three are backed by decimal.Decimal so that
// arithmetic never accumulates the binary-float rounding that would make
// position accounting drift over a long-running process.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrNotFinite is returned when a construction or arithmetic result would
// leave the finite, non-negative domain Price and Quantity require.
var ErrNotFinite = errors.New("value is not a finite non-negative number")

// Price is a finite, non-negative amount. Construction rejects NaN, ±Inf,
// and negative values.
type Price struct {
	d decimal.Decimal
}

// NewPrice constructs a Price, rejecting NaN/±Inf/negative values.
func NewPrice(v float64) (Price, error) {
	if !validFinite(v) || v < 0 {
		return Price{}, ErrNotFinite
	}
	return Price{d: decimal.NewFromFloat(v)}, nil
}

// MustPrice panics if v is outside Price's domain. Reserved for literals
// known at compile time to be valid (test fixtures, default config).
func MustPrice(v float64) Price {
	p, err := NewPrice(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Float64 returns the underlying value as a float64.
func (p Price) Float64() float64 { return mustFloat(p.d) }

// IsZero reports whether the price is exactly zero.
func (p Price) IsZero() bool { return p.d.IsZero() }

func (p Price) String() string { return p.d.String() }

// Mul multiplies the price by a plain scalar in decimal space, saturating
// the float64 result to the representable extremes instead of producing
// ±Inf.
func (p Price) Mul(scalar float64) float64 {
	return saturate(mustFloat(p.d.Mul(decimal.NewFromFloat(scalar))))
}

// Quantity is a finite, non-negative amount with the same construction
// discipline as Price.
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity constructs a Quantity, rejecting NaN/±Inf/negative values.
func NewQuantity(v float64) (Quantity, error) {
	if !validFinite(v) || v < 0 {
		return Quantity{}, ErrNotFinite
	}
	return Quantity{d: decimal.NewFromFloat(v)}, nil
}

// MustQuantity panics if v is outside Quantity's domain.
func MustQuantity(v float64) Quantity {
	q, err := NewQuantity(v)
	if err != nil {
		panic(err)
	}
	return q
}

// Float64 returns the underlying value as a float64.
func (q Quantity) Float64() float64 { return mustFloat(q.d) }

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool { return q.d.IsZero() }

func (q Quantity) String() string { return q.d.String() }

// Notional returns quantity * price, computed in decimal space, as a plain
// float64 saturating rather than overflowing to infinity.
func Notional(q Quantity, p Price) float64 {
	return saturate(mustFloat(q.d.Mul(p.d)))
}

// PnL is a finite real number, allowed to be negative. Multiplication
// saturates to the representable extremes rather than producing ±Inf.
type PnL struct {
	d decimal.Decimal
}

// NewPnL constructs a PnL, rejecting NaN/±Inf.
func NewPnL(v float64) (PnL, error) {
	if !validFinite(v) {
		return PnL{}, ErrNotFinite
	}
	return PnL{d: decimal.NewFromFloat(v)}, nil
}

// ZeroPnL is the realized-zero PnL used by the Position Manager's
// permissive close-without-current-price policy.
var ZeroPnL = PnL{}

// Float64 returns the underlying value as a float64.
func (p PnL) Float64() float64 { return saturate(mustFloat(p.d)) }

func (p PnL) String() string { return p.d.String() }

// LongPnL computes quantity*(current-entry), the Long PnL formula, entirely
// in decimal.Decimal space.
func LongPnL(quantity Quantity, entry, current Price) PnL {
	return PnL{d: quantity.d.Mul(current.d.Sub(entry.d))}
}

// ShortPnL computes quantity*(entry-current), the Short PnL formula,
// entirely in decimal.Decimal space.
func ShortPnL(quantity Quantity, entry, current Price) PnL {
	return PnL{d: quantity.d.Mul(entry.d.Sub(current.d))}
}

func validFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// saturate clamps a multiplication result to ±math.MaxFloat64 instead of
// letting it overflow to an infinity, per the PnL domain's saturation rule.
func saturate(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) {
		return -math.MaxFloat64
	}
	return v
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
