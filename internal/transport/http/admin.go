package http

import (
	"errors"
	"net/http"

	"livequiz-service/internal/auth"
	"livequiz-service/internal/domain"
)

func (h *Handler) adminRoutes(mux *http.ServeMux) {
	guard := func(fn http.HandlerFunc) http.HandlerFunc { return adminOnly(h.tokens, fn) }

	mux.HandleFunc("POST /api/admin/login", h.login)
	mux.HandleFunc("GET /api/admin/stats", guard(h.stats))
	mux.HandleFunc("GET /api/admin/sessions/{code}/leaderboard", guard(h.adminLeaderboard))

	mux.HandleFunc("POST /api/sessions", guard(h.createSession))
	mux.HandleFunc("GET /api/sessions", guard(h.listSessions))
	mux.HandleFunc("POST /api/sessions/start", guard(h.startSession))
	mux.HandleFunc("POST /api/sessions/{code}/next", guard(h.nextQuestion))
	mux.HandleFunc("POST /api/sessions/{code}/results", guard(h.revealResults))
	mux.HandleFunc("PUT /api/sessions/{code}/status", guard(h.stopSession))
	mux.HandleFunc("DELETE /api/sessions/{code}/data", guard(h.resetSession))
	mux.HandleFunc("DELETE /api/sessions/{code}", guard(h.deleteSession))

	mux.HandleFunc("GET /api/questions/session/{code}", guard(h.listQuestions))
	mux.HandleFunc("POST /api/questions", guard(h.addQuestion))
	mux.HandleFunc("PUT /api/questions/reorder", guard(h.reorderQuestions))
	mux.HandleFunc("PUT /api/questions/{id}", guard(h.updateQuestion))
	mux.HandleFunc("DELETE /api/questions/{id}", guard(h.deleteQuestion))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Passcode string `json:"passcode"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.tokens.Login(body.Passcode)
	if errors.Is(err, auth.ErrBadPasscode) {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: err.Error()})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, h.hub.Stats())
}

func (h *Handler) adminLeaderboard(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.AdminLeaderboard(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ranks)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		SessionCode string `json:"sessionCode"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.service.CreateSession(r.Context(), body.SessionCode, body.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, session)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sessions)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionCode string `json:"sessionCode"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.service.StartSession(r.Context(), domain.NormalizeCode(body.SessionCode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}

func (h *Handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.AdvanceQuestion(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}

func (h *Handler) revealResults(w http.ResponseWriter, r *http.Request) {
	revealed, err := h.service.RevealResults(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, revealed)
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.Status `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.service.StopSession(r.Context(), domain.NormalizeCode(r.PathValue("code")), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.ResetSession(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), domain.NormalizeCode(r.PathValue("code"))); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "session deleted"})
}

// listQuestions includes correctness flags and is therefore admin only.
func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListQuestions(r.Context(), domain.NormalizeCode(r.PathValue("code")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, questions)
}

type questionBody struct {
	SessionCode string          `json:"sessionCode"`
	Text        string          `json:"questionText"`
	Options     []domain.Option `json:"options"`
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var body questionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.service.AddQuestion(r.Context(), body.SessionCode, body.Text, body.Options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, q)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var body questionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.service.UpdateQuestion(r.Context(), r.PathValue("id"), body.Text, body.Options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "question deleted"})
}

func (h *Handler) reorderQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionCode string   `json:"sessionCode"`
		QuestionIDs []string `json:"questionIds"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	questions, err := h.service.ReorderQuestions(r.Context(), body.SessionCode, body.QuestionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, questions)
}
