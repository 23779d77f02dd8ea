package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
	"bonk-blitz/internal/infra/postgres"
)

// AdminHandler exposes the round lifecycle over HTTP. Authentication proper
// lives outside this service; the handler only checks a shared admin token.
type AdminHandler struct {
	lifecycle *game.Lifecycle
	history   *postgres.RoundHistory // nil when no database is configured
	token     string
}

func NewAdminHandler(lifecycle *game.Lifecycle, history *postgres.RoundHistory, token string) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, history: history, token: token}
}

// Routes mounts the admin endpoints on a chi router.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireToken)
	r.Post("/rounds", h.createRound)
	r.Post("/rounds/{id}/start", h.startRound)
	r.Post("/rounds/{id}/advance", h.advanceQuestion)
	r.Post("/rounds/{id}/end", h.endRound)
	r.Delete("/rounds/{id}", h.deleteRound)
	r.Get("/rounds/history", h.roundHistory)
	return r
}

func (h *AdminHandler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) createRound(w http.ResponseWriter, r *http.Request) {
	var settings domain.RoundSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid round settings payload")
		return
	}

	round, err := h.lifecycle.CreateRound(r.Context(), settings)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSettings):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInsufficientQuestions):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrActiveRoundExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("create round: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create round")
		}
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (h *AdminHandler) startRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.StartRound, "start round")
}

func (h *AdminHandler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.AdvanceQuestion, "advance question")
}

func (h *AdminHandler) endRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.EndRound, "end round")
}

func (h *AdminHandler) deleteRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.DeleteRound, "delete round")
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error, what string) {
	id := chi.URLParam(r, "id")
	if err := op(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoundNotFound):
			writeError(w, http.StatusNotFound, "round not found")
		case errors.Is(err, domain.ErrRoundFinished):
			writeError(w, http.StatusConflict, "round already finished")
		default:
			log.Printf("%s %s: %v", what, id, err)
			writeError(w, http.StatusInternalServerError, "failed to "+what)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) roundHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []postgres.HistoryEntry{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	entries, err := h.history.RecentRounds(r.Context(), limit)
	if err != nil {
		log.Printf("round history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load round history")
		return
	}
	if entries == nil {
		entries = []postgres.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
