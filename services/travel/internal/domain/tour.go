package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/internal/utils"
	"github.com/diagnosis/jf-travel/pkg/money"
)

type TourCategory string

const (
	CategoryBeach     TourCategory = "beach"
	CategoryAdventure TourCategory = "adventure"
	CategoryCultural  TourCategory = "cultural"
	CategoryLuxury    TourCategory = "luxury"
	CategorySafari    TourCategory = "safari"
)

func ParseTourCategory(s string) (TourCategory, bool) {
	switch TourCategory(s) {
	case CategoryBeach, CategoryAdventure, CategoryCultural, CategoryLuxury, CategorySafari:
		return TourCategory(s), true
	default:
		return "", false
	}
}

var maxRating = decimal.NewFromInt(5)

type Tour struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Destination string           `json:"destination"`
	Country     string           `json:"country"`
	Price       decimal.Decimal  `json:"price"`
	Duration    string           `json:"duration"`
	Category    TourCategory     `json:"category"`
	Rating      *decimal.Decimal `json:"rating"`
	GroupSize   *int             `json:"group_size"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	ImageURL    *string          `json:"image_url"`
	Itinerary   []string         `json:"itinerary"`
	Included    []string         `json:"included"`
	Excluded    []string         `json:"excluded"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TourInput is the create/update payload. Nil fields are left untouched on update.
type TourInput struct {
	Name        *string          `json:"name"`
	Destination *string          `json:"destination"`
	Country     *string          `json:"country"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *string          `json:"duration"`
	Category    *string          `json:"category"`
	Rating      *decimal.Decimal `json:"rating"`
	GroupSize   *int             `json:"group_size"`
	Description *string          `json:"description"`
	Itinerary   []string         `json:"itinerary"`
	Included    []string         `json:"included"`
	Excluded    []string         `json:"excluded"`
}

func (in *TourInput) Normalize() {
	for _, p := range []*string{in.Name, in.Destination, in.Country, in.Duration, in.Category, in.Description} {
		if p != nil {
			*p = utils.NormalizeString(*p)
		}
	}
	if in.Itinerary != nil {
		in.Itinerary = utils.CleanList(in.Itinerary)
	}
	if in.Included != nil {
		in.Included = utils.CleanList(in.Included)
	}
	if in.Excluded != nil {
		in.Excluded = utils.CleanList(in.Excluded)
	}
}

func (in *TourInput) Validate(create bool) ValidationErrors {
	errs := ValidationErrors{}

	requiredText(errs, "name", in.Name, create, 255)
	requiredText(errs, "destination", in.Destination, create, 255)
	requiredText(errs, "country", in.Country, create, 255)
	requiredText(errs, "duration", in.Duration, create, 255)

	if in.Price == nil {
		if create {
			errs.Add("price", "The price field is required.")
		}
	} else if in.Price.IsNegative() {
		errs.Add("price", "The price must be at least 0.")
	}

	if in.Category == nil || *in.Category == "" {
		if create || in.Category != nil {
			errs.Add("category", "The category field is required.")
		}
	} else if _, ok := ParseTourCategory(*in.Category); !ok {
		errs.Add("category", "The selected category is invalid.")
	}

	if in.Rating != nil && (in.Rating.IsNegative() || in.Rating.GreaterThan(maxRating)) {
		errs.Add("rating", "The rating must be between 0 and 5.")
	}
	if in.GroupSize != nil && *in.GroupSize < 1 {
		errs.Add("group_size", "The group size must be at least 1.")
	}

	return errs
}

func requiredText(errs ValidationErrors, field string, v *string, create bool, limit int) {
	if v == nil || *v == "" {
		if create || v != nil {
			errs.Add(field, "The "+field+" field is required.")
		}
		return
	}
	if !utils.MaxLen(*v, limit) {
		errs.Add(field, fmt.Sprintf("The %s may not be greater than %d characters.", field, limit))
	}
}

type TourFilter struct {
	Category    string
	Country     string
	Destination string
}

// Quote prices a tour for a party size, in the reference and a display currency.
type Quote struct {
	TourID         int64           `json:"tour_id"`
	Travelers      int             `json:"travelers"`
	Currency       string          `json:"currency"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
	Total          decimal.Decimal `json:"total"`
	Reference      string          `json:"reference_currency"`
	DisplayPerson  money.Display   `json:"display_per_person"`
	DisplayTotal   money.Display   `json:"display_total"`
}
