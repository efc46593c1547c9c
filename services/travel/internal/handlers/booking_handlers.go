package handlers

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/jf-travel/internal/http/response"
	mw "github.com/diagnosis/jf-travel/pkg/middleware"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

// ListBookings is the admin view with joined user and tour names.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.BookingFilter{Limit: limit, Offset: offset}

	if v := r.URL.Query().Get("status"); v != "" {
		st, ok := domain.ParseBookingStatus(v)
		if !ok {
			response.Validation(w, map[string]string{"status": "The selected status is invalid."})
			return
		}
		filter.Status = &st
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		uid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Validation(w, map[string]string{"user_id": "The user id must be an integer."})
			return
		}
		filter.UserID = &uid
	}

	bookings, total, err := h.bookingService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.BookingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	claims := mw.ClaimsFromContext(r.Context())
	// callers booking for themselves may omit user_id
	if in.UserID == nil && claims != nil {
		in.UserID = &claims.Sub
	}

	booking, err := h.bookingService.Create(r.Context(), claims, &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, map[string]interface{}{"booking": booking})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "booking")
	if !ok {
		return
	}
	booking, err := h.bookingService.Get(r.Context(), mw.ClaimsFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "booking")
	if !ok {
		return
	}
	var in domain.BookingInput
	if !decodeJSON(w, r, &in) {
		return
	}

	booking, err := h.bookingService.Update(r.Context(), mw.ClaimsFromContext(r.Context()), id, &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "booking")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		response.Validation(w, map[string]string{"status": "The status field is required."})
		return
	}

	booking, err := h.bookingService.UpdateStatus(r.Context(), mw.ClaimsFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "booking")
	if !ok {
		return
	}
	if err := h.bookingService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"message": "Booking deleted successfully"})
}
