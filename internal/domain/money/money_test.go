package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound_BankersRounding(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"1.005", "1.00"},
		{"1.015", "1.02"},
		{"1.025", "1.02"},
		{"2.675", "2.68"},
		{"-0.125", "-0.12"},
		{"10", "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Round(decimal.RequireFromString(tt.in)).StringFixed(Scale))
		})
	}
}

func TestArithmeticStaysAtScale(t *testing.T) {
	sum := decimal.Zero
	for i := 0; i < 10; i++ {
		sum = Add(sum, decimal.RequireFromString("0.1"))
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "0.70", Format(Sub(decimal.NewFromInt(1), decimal.RequireFromString("0.3"))))
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive(decimal.RequireFromString("0.01")))
	assert.False(t, IsPositive(decimal.RequireFromString("0.004")))
	assert.False(t, IsPositive(decimal.Zero))
	assert.False(t, IsPositive(decimal.RequireFromString("-5")))
}

func TestParseCurrency(t *testing.T) {
	c, ok := ParseCurrency(" usd ")
	assert.True(t, ok)
	assert.Equal(t, USD, c)

	c, ok = ParseCurrency("PTS")
	assert.True(t, ok)
	assert.True(t, c.Valid())

	_, ok = ParseCurrency("BTC")
	assert.False(t, ok)
	assert.False(t, Currency("").Valid())
}
