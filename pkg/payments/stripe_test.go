package payments_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/jf-travel/pkg/payments"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"10", "USD", 1000},
		{"25.5", "EUR", 2550},
		{"19.999", "GBP", 2000},
		{"1500", "JPY", 1500},
		{"1500.6", "jpy", 1501},
	}
	for _, tt := range tests {
		got, err := payments.MinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s", tt.amount, tt.currency)
	}

	_, err := payments.MinorUnits(decimal.Zero, "USD")
	assert.Error(t, err)
}

func TestStripeGateway_DisabledWithoutKey(t *testing.T) {
	g := payments.NewStripeGateway("")
	assert.False(t, g.Enabled())

	_, err := g.CreateIntent(context.Background(), decimal.NewFromInt(10), "USD", "ref")
	assert.ErrorIs(t, err, payments.ErrDisabled)
}
