package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// Handler exposes the session-facing REST surface: creating a session for a
// quiz and probing a code (used by clients before reconnecting).
type Handler struct {
	service *app.GameService
}

// NewRouter wires the REST and websocket endpoints.
func NewRouter(service *app.GameService) *mux.Router {
	h := &Handler{service: service}
	ws := NewWSHandler(service)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{code}", h.getSession).Methods(http.MethodGet)
	r.HandleFunc("/ws/{code}/{clientID}", ws.ServeWS).Methods(http.MethodGet)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

type createSessionResponse struct {
	Code      string              `json:"code"`
	SessionID string              `json:"sessionId"`
	State     domain.SessionState `json:"state"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateSession(r.Context(), quizID)
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrInvalidQuiz):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		log.Printf("create session failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Code:      session.Code(),
		SessionID: session.ID(),
		State:     session.State(),
	})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	session, err := h.service.Session(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
