// Package payments creates Stripe PaymentIntents for wallet top-ups.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var ErrDisabled = errors.New("payments not configured")

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway is what the deposit flow needs from a card processor.
type Gateway interface {
	Enabled() bool
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, reference string) (*Intent, error)
}

type StripeGateway struct {
	api     *client.API
	enabled bool
}

func NewStripeGateway(secretKey string) *StripeGateway {
	g := &StripeGateway{enabled: secretKey != ""}
	if g.enabled {
		g.api = &client.API{}
		g.api.Init(secretKey, nil)
	}
	return g
}

func (g *StripeGateway) Enabled() bool {
	return g.enabled
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, reference string) (*Intent, error) {
	if !g.enabled {
		return nil, ErrDisabled
	}
	minor, err := MinorUnits(amount, currency)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("deposit-" + reference)
	params.AddMetadata("deposit_reference", reference)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// zeroDecimal lists currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{
	"JPY": true, "KRW": true, "VND": true, "CLP": true, "XOF": true, "XAF": true, "UGX": true,
}

// MinorUnits converts a decimal amount into the integer Stripe expects.
func MinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if zeroDecimal[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart(), nil
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}
