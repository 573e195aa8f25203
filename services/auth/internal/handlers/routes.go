package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/securepulse/securepulse/pkg/middleware"
)

// Routes builds the auth service router.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS)
	r.Use(mw.Health("auth"))

	r.Get("/", h.Root)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	return r
}
