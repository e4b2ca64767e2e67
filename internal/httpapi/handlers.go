package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/auth"
	"github.com/DoyleJ11/ludo-backend/internal/matchmaker"
	"github.com/DoyleJ11/ludo-backend/internal/session"
	"github.com/DoyleJ11/ludo-backend/internal/types"
)

// Matchmaker is the read side of the matchmaker used by the API.
type Matchmaker interface {
	Stats(ctx context.Context) (matchmaker.Stats, error)
	Sessions(ctx context.Context) ([]string, error)
	Session(ctx context.Context, id string) (*session.Session, error)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Stats(mm Matchmaker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := mm.Stats(r.Context())
		if err != nil {
			unavailable(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func ListSessions(mm Matchmaker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := mm.Sessions(r.Context())
		if err != nil {
			unavailable(w, log, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, types.SessionList{Sessions: ids})
	}
}

func GetSession(mm Matchmaker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := mm.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			unavailable(w, log, err)
			return
		}
		if s == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		v, err := s.View(r.Context())
		if err != nil {
			unavailable(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSessionSnapshot(v))
	}
}

func CreateUser(store auth.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		err := store.Create(r.Context(), req.Username, req.Password)
		switch {
		case err == nil:
			log.Info("user created", zap.String("username", req.Username))
			writeJSON(w, http.StatusCreated, types.UserCreated{Username: req.Username})
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, "username taken")
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error("create user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
	}
}

func unavailable(w http.ResponseWriter, log *zap.Logger, err error) {
	log.Warn("matchmaker unavailable", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "shutting down")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
