package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/jf-travel/internal/http/response"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

func (h *Handlers) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rateService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{
		"rates": rates,
		"total": len(rates),
	})
}

func (h *Handlers) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rateService.Get(r.Context(), chi.URLParam(r, "idOrCode"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"rate": rate})
}

func (h *Handlers) CreateRate(w http.ResponseWriter, r *http.Request) {
	var in domain.RateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rate, err := h.rateService.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, map[string]interface{}{"rate": rate})
}

func (h *Handlers) UpdateRate(w http.ResponseWriter, r *http.Request) {
	var in domain.RateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rate, err := h.rateService.Update(r.Context(), chi.URLParam(r, "idOrCode"), &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"rate": rate})
}

func (h *Handlers) DeleteRate(w http.ResponseWriter, r *http.Request) {
	if err := h.rateService.Delete(r.Context(), chi.URLParam(r, "idOrCode")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"message": "Exchange rate deleted successfully"})
}

func (h *Handlers) ConvertCurrency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errs := domain.ValidationErrors{}

	amount, err := money.ParseAmount(q.Get("amount"))
	if errors.Is(err, money.ErrInvalidAmount) {
		errs.Add("amount", "The amount must be a number.")
	} else if amount.IsNegative() {
		errs.Add("amount", "The amount must be at least 0.")
	}
	if q.Get("from") == "" {
		errs.Add("from", "The from field is required.")
	}
	if q.Get("to") == "" {
		errs.Add("to", "The to field is required.")
	}
	if len(errs) > 0 {
		response.Validation(w, errs)
		return
	}

	conv, err := h.rateService.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"conversion": conv})
}
