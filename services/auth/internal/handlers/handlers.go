package handlers

import (
	"errors"
	"net/http"

	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/pkg/response"
	"github.com/securepulse/securepulse/services/auth/internal/domain"
	"github.com/securepulse/securepulse/services/auth/internal/service"
)

// maxBodyBytes caps request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

type Handlers struct {
	authService service.AuthService
}

func New(authService service.AuthService) *Handlers {
	return &Handlers{authService: authService}
}

// writeServiceError maps flow outcomes to transport results. Store and
// unexpected failures never expose their cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, verr.Error(), response.CodeInvalidInput, verr.Fields)
	case errors.Is(err, domain.ErrDuplicateEmail):
		response.WriteError(w, http.StatusBadRequest, "Email already registered", response.CodeEmailExists)
	case errors.Is(err, domain.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		response.WriteError(w, http.StatusUnauthorized, "Incorrect email or password", response.CodeInvalidCredentials)
	case errors.Is(err, domain.ErrAccountDisabled):
		response.WriteError(w, http.StatusBadRequest, "Account is disabled", response.CodeAccountDisabled)
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), "Credential store unavailable", "error", err)
		response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeServiceUnavailable)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
		response.InternalError(w)
	}
}
