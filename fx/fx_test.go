package fx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestJitterQuoter_SameCurrency(t *testing.T) {
	q := NewJitterQuoter()
	assert.True(t, q.Rate(USD, USD).Equal(decimal.NewFromInt(1)))
	assert.True(t, q.Rate(RM, RM).Equal(decimal.NewFromInt(1)))
}

func TestJitterQuoter_USDToRMStaysWithinBand(t *testing.T) {
	q := NewJitterQuoter()
	low := decimal.RequireFromString("4.18")
	high := decimal.RequireFromString("4.28")

	for i := 0; i < 500; i++ {
		rate := q.Rate(USD, RM)
		assert.True(t, rate.GreaterThanOrEqual(low), "rate %s below band", rate)
		assert.True(t, rate.LessThanOrEqual(high), "rate %s above band", rate)
		assert.GreaterOrEqual(t, rate.Exponent(), int32(-4), "rate %s carries more than 4 decimal digits", rate)
	}
}

func TestJitterQuoter_RMToUSDIsReciprocal(t *testing.T) {
	q := NewJitterQuoter()
	// Reciprocal of the jittered band [4.18, 4.28]
	low := decimal.NewFromInt(1).Div(decimal.RequireFromString("4.28")).Round(4)
	high := decimal.NewFromInt(1).Div(decimal.RequireFromString("4.18")).Round(4)

	for i := 0; i < 500; i++ {
		rate := q.Rate(RM, USD)
		assert.True(t, rate.GreaterThanOrEqual(low), "rate %s below band", rate)
		assert.True(t, rate.LessThanOrEqual(high), "rate %s above band", rate)
	}
}

func TestJitterQuoter_UnknownPairQuotesOne(t *testing.T) {
	q := NewJitterQuoter()
	assert.True(t, q.Rate("EUR", USD).Equal(decimal.NewFromInt(1)))
	assert.True(t, q.Rate(USD, "EUR").Equal(decimal.NewFromInt(1)))
	assert.True(t, q.Rate("EUR", "GBP").Equal(decimal.NewFromInt(1)))
}

func TestFrozenQuoter_HoldsRateAcrossCalls(t *testing.T) {
	q := NewFrozenQuoter()

	first := q.Rate(USD, RM)
	for i := 0; i < 100; i++ {
		assert.True(t, q.Rate(USD, RM).Equal(first))
	}
}

func TestFrozenQuoter_InverseIsReciprocalOfFirstDraw(t *testing.T) {
	q := NewFrozenQuoter()

	forward := q.Rate(USD, RM)
	inverse := q.Rate(RM, USD)

	expected := decimal.NewFromInt(1).Div(forward).Round(4)
	assert.True(t, inverse.Equal(expected), "expected %s, got %s", expected, inverse)

	// Round-tripping an amount through both directions lands within rounding
	// distance of where it started
	amount := decimal.RequireFromString("1000.00")
	roundTrip := amount.Mul(forward).Mul(inverse)
	drift := roundTrip.Sub(amount).Abs()
	assert.True(t, drift.LessThan(decimal.RequireFromString("0.50")), "drift %s", drift)
}

func TestFrozenQuoter_SameCurrency(t *testing.T) {
	q := NewFrozenQuoter()
	assert.True(t, q.Rate(USD, USD).Equal(decimal.NewFromInt(1)))
}

func TestRound2_HalfUp(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"2.345", "2.35"},
		{"2.344", "2.34"},
		{"2.005", "2.01"},
		{"10.00", "10"},
		{"0.004", "0"},
	}

	for _, tt := range tests {
		got := Round2(decimal.RequireFromString(tt.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
			"Round2(%s): expected %s, got %s", tt.in, tt.expected, got)
	}
}

func TestRound4(t *testing.T) {
	got := Round4(decimal.RequireFromString("4.23456"))
	assert.True(t, got.Equal(decimal.RequireFromString("4.2346")))
}
