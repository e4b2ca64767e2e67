package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/auth"
	"github.com/DoyleJ11/ludo-backend/internal/ws"
)

func SetupRoutes(mm Matchmaker, store auth.Store, admit ws.Admitter, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(mm, log))
	r.Get("/sessions", ListSessions(mm, log))
	r.Get("/sessions/{id}", GetSession(mm, log))
	r.Post("/users", CreateUser(store, log))
	r.Get("/ws", ws.Handler(admit, log))
	return r
}
