package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Display is the JSON shape used wherever a price is shown to a user.
type Display struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Flag     string          `json:"flag,omitempty"`
	Text     string          `json:"text"`
}

type Formatter struct {
	printer *message.Printer
}

func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

var maxWhole = decimal.NewFromInt(math.MaxInt64)

// Format renders amount with two decimals and locale grouping, e.g. "154,000.00 NGN".
func (f *Formatter) Format(amount decimal.Decimal, code string) string {
	return f.number(Round2(amount)) + " " + NormalizeCode(code)
}

// number groups the whole part as an exact integer and appends the cents
// from the decimal string. Only amounts past int64 go through float64.
func (f *Formatter) number(d decimal.Decimal) string {
	abs := d.Abs()
	whole := abs.Truncate(0)
	if whole.GreaterThan(maxWhole) {
		return f.float(d)
	}

	s := f.printer.Sprintf("%v", number.Decimal(whole.IntPart(), number.Scale(2)))
	if !strings.HasSuffix(s, "00") {
		return f.float(d)
	}
	fixed := abs.StringFixed(2)
	s = s[:len(s)-2] + fixed[len(fixed)-2:]
	if d.IsNegative() {
		s = "-" + s
	}
	return s
}

func (f *Formatter) float(d decimal.Decimal) string {
	v, _ := d.Float64()
	return f.printer.Sprintf("%v", number.Decimal(v, number.Scale(2)))
}

func (f *Formatter) Display(amount decimal.Decimal, code, flag string) Display {
	return Display{
		Amount:   Round2(amount),
		Currency: NormalizeCode(code),
		Flag:     flag,
		Text:     f.Format(amount, code),
	}
}

func Format(amount decimal.Decimal, code, locale string) string {
	return NewFormatter(locale).Format(amount, code)
}
