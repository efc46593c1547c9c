package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/jf-travel/internal/http/response"
	"github.com/diagnosis/jf-travel/pkg/logger"
	mw "github.com/diagnosis/jf-travel/pkg/middleware"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/service"
)

type Handlers struct {
	tourService    service.TourService
	bookingService service.BookingService
	rateService    service.RateService
	authService    service.AuthService
	depositService service.DepositService
	maxUpload      int64
}

func New(
	tourService service.TourService,
	bookingService service.BookingService,
	rateService service.RateService,
	authService service.AuthService,
	depositService service.DepositService,
	maxUpload int64,
) *Handlers {
	return &Handlers{
		tourService:    tourService,
		bookingService: bookingService,
		rateService:    rateService,
		authService:    authService,
		depositService: depositService,
		maxUpload:      maxUpload,
	}
}

// RouteOptions carries middleware that depends on optional infrastructure.
// Nil entries are skipped.
type RouteOptions struct {
	Idempotency   func(http.Handler) http.Handler
	AuthRateLimit func(http.Handler) http.Handler
}

// Routes mounts the API. Claims must already be on the context (mw.Authenticate).
func (h *Handlers) Routes(r chi.Router, opts RouteOptions) {
	idem := passthrough(opts.Idempotency)

	r.Route("/auth", func(r chi.Router) {
		r.Use(passthrough(opts.AuthRateLimit))
		r.Post("/check-admin", h.CheckAdmin)
		r.Post("/firebase-signup", h.FirebaseSignup)
	})

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", h.ListTours)
		r.Get("/{id}", h.GetTour)
		r.Get("/{id}/quote", h.QuoteTour)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Post("/", h.CreateTour)
			r.Put("/{id}", h.UpdateTour)
			r.Delete("/{id}", h.DeleteTour)
		})
	})

	r.Route("/exchange-rates", func(r chi.Router) {
		r.Get("/", h.ListRates)
		r.Get("/convert", h.ConvertCurrency)
		r.Get("/{idOrCode}", h.GetRate)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Post("/", h.CreateRate)
			r.Put("/{idOrCode}", h.UpdateRate)
			r.Delete("/{idOrCode}", h.DeleteRate)
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.With(idem).Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Put("/{id}/status", h.UpdateBookingStatus)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Get("/", h.ListBookings)
			r.Put("/{id}", h.UpdateBooking)
			r.Delete("/{id}", h.DeleteBooking)
		})
	})

	r.Route("/deposits", func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.With(idem).Post("/", h.CreateDeposit)
		r.Get("/", h.ListDeposits)
		r.With(mw.RequireAdmin).Put("/{id}/status", h.SettleDeposit)
	})
}

func passthrough(m func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m != nil {
		return m
	}
	return func(next http.Handler) http.Handler { return next }
}

// decodeJSON writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr):
		response.BadRequest(w, "Invalid JSON format")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		response.Validation(w, map[string]string{typeErr.Field: "The " + typeErr.Field + " field has an invalid type."})
	default:
		logger.DebugContext(r.Context(), "Request body rejected", "error", err)
		response.Validation(w, map[string]string{"body": "The request contains an invalid value."})
	}
	return false
}

func parseID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

// writeServiceError maps service errors onto the response envelope. Anything
// unrecognised is logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs domain.ValidationErrors
	var transition *domain.TransitionError

	switch {
	case errors.As(err, &verrs):
		response.Validation(w, verrs)
	case errors.Is(err, money.ErrUnknownCurrency):
		response.Validation(w, map[string]string{"currency": "The selected currency is not supported."})
	case errors.As(err, &transition):
		response.Conflict(w, transition.Error())

	case errors.Is(err, domain.ErrTourNotFound):
		response.NotFound(w, "Tour not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		response.NotFound(w, "Booking not found")
	case errors.Is(err, domain.ErrRateNotFound):
		response.NotFound(w, "Exchange rate not found")
	case errors.Is(err, domain.ErrDepositNotFound):
		response.NotFound(w, "Deposit not found")
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, "User not found")

	case errors.Is(err, domain.ErrTourHasBookings):
		response.Conflict(w, "Tour has bookings and cannot be deleted")
	case errors.Is(err, domain.ErrRateInUse):
		response.Conflict(w, "Exchange rate is in use and cannot be deleted or renamed")
	case errors.Is(err, domain.ErrIdentityMismatch):
		response.Conflict(w, "Account is linked to a different identity")
	case errors.Is(err, domain.ErrBookingLocked):
		response.Conflict(w, "Booking can no longer be modified")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "You do not have access to this resource")

	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}
