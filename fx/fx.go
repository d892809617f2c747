// Package fx provides currency conversion rates between the two reporting
// currencies, plus the fixed-point rounding helpers shared by the generator
// and the KPI engine.
package fx

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Reporting currencies. All KPI totals are expressed in these two.
const (
	USD = "USD"
	RM  = "RM"
)

// Realistic USD/RM midpoint with mild jitter
var (
	midUSDRM    = decimal.NewFromFloat(4.23)
	jitterUSDRM = 0.05
	one         = decimal.NewFromInt(1)
)

// Quoter produces a conversion rate from base to quote, rounded to 4 decimal
// digits. Implementations never fail: a same-currency or unsupported pair
// quotes exactly 1.0.
type Quoter interface {
	Rate(base, quote string) decimal.Decimal
}

// JitterQuoter models live market movement: every call draws a fresh rate
// around the fixed midpoint. Two calls in the same instant may differ, so
// callers must quote at most once per amount they convert.
type JitterQuoter struct{}

// NewJitterQuoter creates the default live-market quoter
func NewJitterQuoter() *JitterQuoter {
	return &JitterQuoter{}
}

// Rate returns the base→quote conversion rate
func (q *JitterQuoter) Rate(base, quote string) decimal.Decimal {
	return drawRate(base, quote)
}

func drawRate(base, quote string) decimal.Decimal {
	if base == quote {
		return one
	}

	jitter := (rand.Float64() * 2 * jitterUSDRM) - jitterUSDRM
	usdrm := midUSDRM.Add(decimal.NewFromFloat(jitter)).Round(4)

	switch {
	case base == USD && quote == RM:
		return usdrm
	case base == RM && quote == USD:
		return one.Div(usdrm).Round(4)
	}

	// Unknown pairs fall back to 1.0 rather than failing; aggregation
	// depends on quoting never raising.
	return one
}

// FrozenQuoter draws one rate per currency pair and holds it for its
// lifetime, so a whole snapshot can be computed against a stable rate. The
// inverse direction is frozen to the reciprocal of the first draw.
type FrozenQuoter struct {
	mu    sync.Mutex
	rates map[[2]string]decimal.Decimal
}

// NewFrozenQuoter creates a quoter with a stable rate per pair
func NewFrozenQuoter() *FrozenQuoter {
	return &FrozenQuoter{rates: make(map[[2]string]decimal.Decimal)}
}

// Rate returns the frozen base→quote conversion rate, drawing it on first use
func (q *FrozenQuoter) Rate(base, quote string) decimal.Decimal {
	if base == quote {
		return one
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := [2]string{base, quote}
	if rate, ok := q.rates[key]; ok {
		return rate
	}

	rate := drawRate(base, quote)
	q.rates[key] = rate
	q.rates[[2]string{quote, base}] = one.Div(rate).Round(4)
	return rate
}

// Round2 rounds a monetary amount to 2 decimal digits, half away from zero
// (half-up for the non-negative amounts the ledger carries)
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round4 rounds a conversion rate to 4 decimal digits
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}
