package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
	"github.com/tunelink/jamsync/internal/ws"
)

func SetupRoutes(store session.Store, hub *transport.Hub, log *zap.Logger) http.Handler {
	api := NewAPI(store, hub, log)

	r := chi.NewRouter()
	r.Post("/sessions", api.CreateSession)
	r.Get("/sessions/{id}", api.GetSession)
	r.Post("/sessions/{id}/join", api.JoinSession)
	r.Post("/sessions/{id}/leave", api.LeaveSession)
	r.Delete("/sessions/{id}", api.EndSession)
	r.Post("/sessions/{id}/queue", api.AppendToQueue)

	r.Get("/healthz", Healthz)
	r.Get("/stats", api.Stats)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(hub, store, log))
	return r
}
