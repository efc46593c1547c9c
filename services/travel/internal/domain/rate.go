package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/internal/utils"
	"github.com/diagnosis/jf-travel/pkg/money"
)

var minRate = decimal.RequireFromString("0.0001")

type CurrencyRate struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	BuyRate   decimal.Decimal `json:"buy_rate"`
	SellRate  decimal.Decimal `json:"sell_rate"`
	Flag      *string         `json:"flag"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RateInput carries create and update fields. Nil means "not supplied".
type RateInput struct {
	Code     *string          `json:"code"`
	Name     *string          `json:"name"`
	Rate     *decimal.Decimal `json:"rate"`
	BuyRate  *decimal.Decimal `json:"buy_rate"`
	SellRate *decimal.Decimal `json:"sell_rate"`
	Flag     *string          `json:"flag"`
}

func (in *RateInput) Normalize() {
	if in.Code != nil {
		c := money.NormalizeCode(*in.Code)
		in.Code = &c
	}
	if in.Name != nil {
		n := utils.NormalizeString(*in.Name)
		in.Name = &n
	}
	if in.Flag != nil {
		f := strings.TrimSpace(*in.Flag)
		in.Flag = &f
	}
}

// Validate checks field shapes. Uniqueness is the service's job.
func (in *RateInput) Validate(create bool) ValidationErrors {
	errs := ValidationErrors{}

	if in.Code == nil || *in.Code == "" {
		if create {
			errs.Add("code", "The code field is required.")
		} else if in.Code != nil {
			errs.Add("code", "The code field must not be empty.")
		}
	} else if !isCurrencyCode(*in.Code) {
		errs.Add("code", "The code must be exactly 3 letters.")
	}

	if in.Name == nil || *in.Name == "" {
		if create || in.Name != nil {
			errs.Add("name", "The name field is required.")
		}
	} else if !utils.MaxLen(*in.Name, 255) {
		errs.Add("name", "The name may not be greater than 255 characters.")
	}

	checkRate(errs, "rate", in.Rate, create)
	checkRate(errs, "buy_rate", in.BuyRate, create)
	checkRate(errs, "sell_rate", in.SellRate, create)

	return errs
}

func checkRate(errs ValidationErrors, field string, v *decimal.Decimal, required bool) {
	if v == nil {
		if required {
			errs.Add(field, "The "+field+" field is required.")
		}
		return
	}
	if v.LessThan(minRate) {
		errs.Add(field, "The "+field+" must be at least 0.0001.")
	}
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Conversion is returned by the convert endpoint.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	Display   money.Display   `json:"display"`
}
