package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securepulse/securepulse/pkg/logger"
	mw "github.com/securepulse/securepulse/pkg/middleware"
	"github.com/securepulse/securepulse/pkg/response"
	"github.com/securepulse/securepulse/services/soc/internal/tasks"
)

type Handlers struct {
	broker tasks.Broker
}

func New(broker tasks.Broker) *Handlers {
	return &Handlers{broker: broker}
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("soc"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS)
	r.Use(mw.Health("soc"))

	r.Get("/", h.Root)
	r.Route("/api/soc", func(r chi.Router) {
		r.Post("/alerts/poll", h.PollAlerts)
		r.Get("/tasks/{id}", h.GetTask)
	})

	return r
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "SOC Service is running",
		"service": "soc",
	})
}

// PollAlerts queues an out-of-schedule alert poll.
func (h *Handlers) PollAlerts(w http.ResponseWriter, r *http.Request) {
	job := tasks.NewJob(tasks.PollAlertsTask)
	if err := h.broker.Enqueue(r.Context(), job); err != nil {
		logger.ErrorContext(r.Context(), "Failed to enqueue alert poll", "error", err)
		response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeServiceUnavailable)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"task_id": job.ID})
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.broker.Result(r.Context(), id)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		response.NotFound(w, "Task not found")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load task result", "error", err, "task_id", id)
		response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeServiceUnavailable)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}
