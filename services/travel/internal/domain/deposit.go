package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/money"
)

type DepositStatus string

const (
	DepositPending DepositStatus = "pending"
	DepositSuccess DepositStatus = "success"
	DepositFailed  DepositStatus = "failed"
)

func ParseDepositStatus(s string) (DepositStatus, bool) {
	switch DepositStatus(s) {
	case DepositPending, DepositSuccess, DepositFailed:
		return DepositStatus(s), true
	default:
		return "", false
	}
}

// CheckDepositTransition allows only settling a pending deposit.
func CheckDepositTransition(from, to DepositStatus) error {
	if from == DepositPending && (to == DepositSuccess || to == DepositFailed) {
		return nil
	}
	return &TransitionError{From: string(from), To: string(to)}
}

type PaymentMethod string

const (
	PayCreditCard   PaymentMethod = "credit_card"
	PayBankTransfer PaymentMethod = "bank_transfer"
	PayPayPal       PaymentMethod = "paypal"
	PayStripe       PaymentMethod = "stripe"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PayCreditCard, PayBankTransfer, PayPayPal, PayStripe:
		return PaymentMethod(s), true
	default:
		return "", false
	}
}

type Deposit struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ReferenceID   string          `json:"reference_id"`
	Status        DepositStatus   `json:"status"`
	ProviderRef   *string         `json:"provider_ref,omitempty"`
	Notes         *string         `json:"notes"`
	ClientSecret  string          `json:"client_secret,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type DepositInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	PaymentMethod string           `json:"payment_method"`
	Notes         *string          `json:"notes"`
}

func (in *DepositInput) Normalize() {
	in.Currency = money.NormalizeCode(in.Currency)
}

func (in *DepositInput) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if in.Amount == nil {
		errs.Add("amount", "The amount field is required.")
	} else if !in.Amount.IsPositive() {
		errs.Add("amount", "The amount must be greater than 0.")
	}
	if in.Currency != "" && len(in.Currency) != 3 {
		errs.Add("currency", "The currency must be a 3 letter code.")
	}
	if in.PaymentMethod == "" {
		errs.Add("payment_method", "The payment method field is required.")
	} else if _, ok := ParsePaymentMethod(in.PaymentMethod); !ok {
		errs.Add("payment_method", "The selected payment method is invalid.")
	}
	return errs
}

type DepositFilter struct {
	UserID *int64
	Limit  int
	Offset int
}
