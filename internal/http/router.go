package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-ha/q5-assistants/internal/http/handlers"
)

// NewRouter builds the status and control API.
func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON)
	r.Use(RequestLogger(api))

	// The event stream is long-lived and stays outside the request timeout.
	r.Get("/api/events", api.Events)

	r.Group(func(timed chi.Router) {
		timed.Use(middleware.Timeout(20 * time.Second))
		timed.Get("/healthz", api.Health)
		timed.Route("/api/assistants", func(apiRouter chi.Router) {
			apiRouter.Get("/", api.ListAssistants)
			apiRouter.Post("/{name}/refresh", func(w http.ResponseWriter, r *http.Request) {
				api.RefreshAssistant(w, r, chi.URLParam(r, "name"))
			})
			apiRouter.Get("/{name}/history", func(w http.ResponseWriter, r *http.Request) {
				api.AssistantHistory(w, r, chi.URLParam(r, "name"))
			})
		})
	})
	return r
}
