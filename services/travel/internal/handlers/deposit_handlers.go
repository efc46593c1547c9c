package handlers

import (
	"net/http"

	"github.com/diagnosis/jf-travel/internal/http/response"
	mw "github.com/diagnosis/jf-travel/pkg/middleware"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

func (h *Handlers) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var in domain.DepositInput
	if !decodeJSON(w, r, &in) {
		return
	}
	deposit, err := h.depositService.Create(r.Context(), mw.ClaimsFromContext(r.Context()), &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, map[string]interface{}{"deposit": deposit})
}

func (h *Handlers) ListDeposits(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	deposits, total, err := h.depositService.List(r.Context(), mw.ClaimsFromContext(r.Context()),
		domain.DepositFilter{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{
		"deposits": deposits,
		"total":    total,
	})
}

func (h *Handlers) SettleDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deposit")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	deposit, err := h.depositService.Settle(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"deposit": deposit})
}
