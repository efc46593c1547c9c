package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTourNotFound    = errors.New("tour not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrRateNotFound    = errors.New("exchange rate not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDepositNotFound = errors.New("deposit not found")

	ErrTourHasBookings  = errors.New("tour has bookings")
	ErrRateInUse        = errors.New("exchange rate is in use")
	ErrIdentityMismatch = errors.New("account is linked to a different identity")
	ErrBookingLocked    = errors.New("booking can no longer be modified")
	ErrForbidden        = errors.New("not allowed")
)

// ValidationErrors maps a request field to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add keeps the first message recorded for a field.
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Err returns nil when nothing was recorded so callers can `return v.Err()`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}
