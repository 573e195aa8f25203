package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/securepulse/securepulse/pkg/response"
	"github.com/securepulse/securepulse/services/auth/internal/domain"
)

// Root is the service banner.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "Auth Service is running",
		"service": "auth",
	})
}

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeServiceError(w, r, domain.NewValidationError("body", "Invalid JSON format"))
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, user.ToUserOut())
}

// Login handles the OAuth2 password form: username (the email) and password.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeServiceError(w, r, domain.NewValidationError("body", "Invalid form body"))
		return
	}

	req := domain.LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}

	pair, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.WriteJSON(w, http.StatusOK, pair)
}
