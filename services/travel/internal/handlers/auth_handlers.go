package handlers

import (
	"net/http"

	"github.com/diagnosis/jf-travel/internal/http/response"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

// CheckAdmin answers whether an email belongs to an admin. Kept for older clients;
// new clients read the role claim from the signup token.
func (h *Handlers) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{
		"isAdmin": h.authService.CheckAdmin(r.Context(), req.Email),
	})
}

func (h *Handlers) FirebaseSignup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(w, status, map[string]interface{}{
		"user":       result.User,
		"token":      result.Token,
		"expires_in": result.ExpiresIn,
	})
}
