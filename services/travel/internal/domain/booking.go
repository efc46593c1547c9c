package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/money"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns nil for allowed moves and for a no-op move to the same status.
func CheckTransition(from, to BookingStatus) error {
	if from == to || from.CanTransitionTo(to) {
		return nil
	}
	return &TransitionError{From: string(from), To: string(to)}
}

// CalculateTotal is price × travelers in the reference currency, rounded to cents.
func CalculateTotal(price decimal.Decimal, travelers int) decimal.Decimal {
	return money.Round2(price.Mul(decimal.NewFromInt(int64(travelers))))
}

const dateLayout = "2006-01-02"

// Date is a calendar day. It reads YYYY-MM-DD or RFC 3339 and always writes YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid date, expected YYYY-MM-DD")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type TourBooking struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	TourID            int64           `json:"tour_id"`
	BookingDate       Date            `json:"booking_date"`
	TravelDate        Date            `json:"travel_date"`
	NumberOfTravelers int             `json:"number_of_travelers"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	Status            BookingStatus   `json:"status"`
	UserName          string          `json:"user_name,omitempty"`
	UserEmail         string          `json:"user_email,omitempty"`
	TourName          string          `json:"tour_name,omitempty"`
	DisplayTotal      *money.Display  `json:"display_total,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (b *TourBooking) IsOwner(userID int64) bool {
	return b.UserID == userID
}

// BookingInput is the create/update payload. TotalPrice is advisory only.
type BookingInput struct {
	UserID            *int64           `json:"user_id"`
	TourID            *int64           `json:"tour_id"`
	BookingDate       *Date            `json:"booking_date"`
	TravelDate        *Date            `json:"travel_date"`
	NumberOfTravelers *int             `json:"number_of_travelers"`
	TotalPrice        *decimal.Decimal `json:"total_price"`
	Currency          *string          `json:"currency"`
	Status            *string          `json:"status"`
}

func (in *BookingInput) Validate(create bool) ValidationErrors {
	errs := ValidationErrors{}

	if create {
		if in.UserID == nil {
			errs.Add("user_id", "The user id field is required.")
		}
		if in.TourID == nil {
			errs.Add("tour_id", "The tour id field is required.")
		}
		if in.TravelDate == nil {
			errs.Add("travel_date", "The travel date field is required.")
		}
		if in.NumberOfTravelers == nil {
			errs.Add("number_of_travelers", "The number of travelers field is required.")
		}
	}

	if in.NumberOfTravelers != nil && *in.NumberOfTravelers < 1 {
		errs.Add("number_of_travelers", "The number of travelers must be at least 1.")
	}
	if in.TotalPrice != nil && in.TotalPrice.IsNegative() {
		errs.Add("total_price", "The total price must be at least 0.")
	}
	if in.BookingDate != nil && in.TravelDate != nil && in.TravelDate.Before(in.BookingDate.Time) {
		errs.Add("travel_date", "The travel date must be a date after or equal to booking date.")
	}
	if in.Status != nil {
		if _, ok := ParseBookingStatus(*in.Status); !ok {
			errs.Add("status", "The selected status is invalid.")
		}
	}
	if in.Currency != nil && *in.Currency != "" && len(money.NormalizeCode(*in.Currency)) != 3 {
		errs.Add("currency", "The currency must be a 3 letter code.")
	}

	return errs
}

// HasChanges reports whether the payload touches anything besides status.
func (in *BookingInput) HasChanges() bool {
	return in.TourID != nil || in.BookingDate != nil || in.TravelDate != nil ||
		in.NumberOfTravelers != nil || (in.Currency != nil && *in.Currency != "")
}

type BookingFilter struct {
	UserID *int64
	Status *BookingStatus
	Limit  int
	Offset int
}

// BookingPatch is what the repository writes on update. The write only
// lands while the row still holds FromStatus.
type BookingPatch struct {
	TourID            *int64
	BookingDate       *time.Time
	TravelDate        *time.Time
	NumberOfTravelers *int
	TotalPrice        *decimal.Decimal
	Currency          *string
	Status            *BookingStatus
	FromStatus        BookingStatus
}
