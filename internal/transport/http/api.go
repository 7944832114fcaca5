package http

import (
	"net/http"

	"livequiz-service/internal/app"
	"livequiz-service/internal/auth"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/realtime"
)

// Handler exposes the quiz use cases over REST and WebSocket.
type Handler struct {
	service *app.QuizService
	hub     *realtime.Hub
	tokens  *auth.Manager
	ws      *WSHandler
}

func NewHandler(service *app.QuizService, hub *realtime.Hub, tokens *auth.Manager) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		ws:      NewWSHandler(service, hub, tokens),
	}
}

// Routes builds the full HTTP surface, wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /ws", h.ws.ServeWS)

	mux.HandleFunc("POST /api/participants/register", h.register)
	mux.HandleFunc("POST /api/participants/submit", h.submit)
	mux.HandleFunc("GET /api/participants/leaderboard/{code}", h.leaderboard)
	mux.HandleFunc("GET /api/participants/stats/{id}", h.participantStats)
	mux.HandleFunc("GET /api/participants/history/{id}", h.history)

	mux.HandleFunc("GET /api/sessions/code/{code}", h.publicSession)
	mux.HandleFunc("GET /api/sessions/code/{code}/state", h.state)

	h.adminRoutes(mux)
	return requestLogger(mux)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.service.Join(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Rejoined {
		status = http.StatusOK
	}
	writeData(w, status, res)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.AnswerSubmission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.service.SubmitAnswer(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: res.Message, Data: res})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.Leaderboard(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ranks)
}

func (h *Handler) participantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ParticipantStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GameHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

type publicSession struct {
	Code   string        `json:"sessionCode"`
	Title  string        `json:"title"`
	Status domain.Status `json:"status"`
}

func (h *Handler) publicSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, publicSession{Code: session.Code, Title: session.Title, Status: session.Status.Public()})
}

// state is the polling fallback for clients that cannot hold a socket.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Sync(r.Context(), r.PathValue("code"), r.URL.Query().Get("participantId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}
