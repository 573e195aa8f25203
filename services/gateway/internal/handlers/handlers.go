package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/securepulse/securepulse/pkg/auth"
	"github.com/securepulse/securepulse/pkg/logger"
	mw "github.com/securepulse/securepulse/pkg/middleware"
	"github.com/securepulse/securepulse/pkg/response"
)

type claimsKey struct{}

// TokenParser validates bearer tokens. *auth.Issuer satisfies it.
type TokenParser interface {
	Parse(token string, expected auth.TokenType) (*auth.Claims, error)
}

// Upstreams are the services the gateway fronts.
type Upstreams struct {
	Auth      http.Handler
	Inventory http.Handler
	SOC       http.Handler
	AI        http.Handler
	Reports   http.Handler
}

type Handlers struct {
	tokens    TokenParser
	upstreams Upstreams
	now       func() time.Time
}

func New(tokens TokenParser, upstreams Upstreams) *Handlers {
	return &Handlers{tokens: tokens, upstreams: upstreams, now: time.Now}
}

// Routes builds the gateway router. Paths are forwarded unchanged.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(SecureHeaders)
	r.Use(StripIdentityHeaders)

	r.Get("/health", h.Health)

	r.Mount("/api/auth", h.upstreams.Auth)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireJWT)
		r.Mount("/api/inventory", h.upstreams.Inventory)
		r.Mount("/api/soc", h.upstreams.SOC)
		r.Mount("/api/ai", h.upstreams.AI)
		r.Mount("/api/reports", h.upstreams.Reports)
	})

	return r
}

// Health reports gateway liveness only; upstreams are not probed.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "active",
		"timestamp": h.now().UTC(),
	})
}

// RequireJWT admits requests carrying a valid access token. A missing bearer
// is 401; a token that fails validation is 403.
func (h *Handlers) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			response.WriteError(w, http.StatusUnauthorized, "Missing or invalid authorization header", response.CodeUnauthorized)
			return
		}

		claims, err := h.tokens.Parse(token, auth.TokenAccess)
		if err != nil {
			code := response.CodeInvalidToken
			if errors.Is(err, auth.ErrTokenExpired) {
				code = response.CodeExpiredToken
			}
			logger.WarnContext(r.Context(), "Rejected bearer token", "error", err)
			response.WriteError(w, http.StatusForbidden, "Invalid or expired token", code)
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, strconv.FormatInt(claims.UserID, 10))
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		r.Header.Set(HeaderUserID, strconv.FormatInt(claims.UserID, 10))
		r.Header.Set(HeaderUserEmail, claims.Subject)
		r.Header.Set(HeaderUserRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity headers carry the verified caller to upstreams. Only RequireJWT
// may set them.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// StripIdentityHeaders removes client-supplied X-User-* headers on every
// route, authenticated or not.
func StripIdentityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k := range r.Header {
			if strings.HasPrefix(k, "X-User-") {
				r.Header.Del(k)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the claims RequireJWT accepted.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// SecureHeaders sets the baseline browser hardening headers on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}
