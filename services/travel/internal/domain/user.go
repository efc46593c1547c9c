package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/internal/utils"
)

type User struct {
	ID                int64           `json:"id"`
	Email             string          `json:"email"`
	Name              string          `json:"name"`
	Role              string          `json:"role"`
	WalletBalance     decimal.Decimal `json:"wallet_balance"`
	PreferredCurrency string          `json:"preferred_currency"`
	FirebaseUIDHash   *string         `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u *User) ToUserInfo() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type SignupRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	FirebaseUID string `json:"firebaseUid"`
}

func (r *SignupRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Name = utils.NormalizeString(r.Name)
	r.FirebaseUID = utils.NormalizeString(r.FirebaseUID)
}

func (r *SignupRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.Email == "" {
		errs.Add("email", "The email field is required.")
	} else if !utils.IsValidEmail(r.Email) {
		errs.Add("email", "The email must be a valid email address.")
	}
	if r.Name == "" {
		errs.Add("name", "The name field is required.")
	} else if !utils.MaxLen(r.Name, 255) {
		errs.Add("name", "The name may not be greater than 255 characters.")
	}
	if r.FirebaseUID == "" {
		errs.Add("firebaseUid", "The firebase uid field is required.")
	}
	return errs
}

type SignupResult struct {
	User      UserInfo `json:"user"`
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expires_in"`
	Created   bool     `json:"created"`
}
