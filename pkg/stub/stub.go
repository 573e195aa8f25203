// Package stub serves the placeholder services that only announce
// themselves until their features land.
package stub

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/securepulse/securepulse/pkg/middleware"
	"github.com/securepulse/securepulse/pkg/response"
)

// Banner is the GET / payload.
type Banner struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Routes returns the router for a placeholder service. name is the short
// service id ("ai") and title its display name ("AI").
func Routes(name, title string) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(name))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS)
	r.Use(mw.Health(name))

	banner := Banner{Status: title + " Service is running", Service: name}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, banner)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", response.CodeInvalidInput)
	})

	return r
}
