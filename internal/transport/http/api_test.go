package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (env *testEnv) call(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func decodeData[T any](t *testing.T, res apiResponse) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(res.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", res.Data, err)
	}
	return v
}

func TestRegisterSubmitAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.call(t, http.MethodPost, "/api/participants/register", "", map[string]string{
		"name": "Alice", "sessionCode": "quiz1",
	})
	if status != http.StatusCreated || !res.Success {
		t.Fatalf("register: %d %+v", status, res)
	}
	joined := decodeData[domain.JoinResult](t, res)
	if joined.SessionCode != "QUIZ1" || joined.JoinCode == "" || joined.TotalScore != nil {
		t.Fatalf("unexpected join result %+v", joined)
	}

	if _, err := env.svc.StartSession(context.Background(), "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	env.clock.Advance(5 * time.Second)

	submission := map[string]any{
		"participantId": joined.ParticipantID, "questionId": env.qids[0],
		"selectedOption": "4", "timeLeft": 10,
	}
	status, res = env.call(t, http.MethodPost, "/api/participants/submit", "", submission)
	if status != http.StatusOK {
		t.Fatalf("submit: %d %+v", status, res)
	}
	result := decodeData[domain.AnswerResult](t, res)
	if !result.Correct || result.Added != 17 || result.TotalScore != 17 {
		t.Fatalf("unexpected result %+v", result)
	}

	_, res = env.call(t, http.MethodPost, "/api/participants/submit", "", submission)
	if res.Message != domain.MessageAlreadyAnswered || decodeData[domain.AnswerResult](t, res).TotalScore != 17 {
		t.Fatalf("expected idempotent resubmit, got %+v", res)
	}

	status, res = env.call(t, http.MethodGet, "/api/participants/leaderboard/quiz1", "", nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard: %d", status)
	}
	ranks := decodeData[[]domain.RankEntry](t, res)
	if len(ranks) != 1 || ranks[0].Score != 17 || ranks[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", ranks)
	}

	env.clock.Advance(20 * time.Second)
	status, res = env.call(t, http.MethodPost, "/api/participants/submit", "", submission)
	if status != http.StatusConflict || res.Success {
		t.Fatalf("expected conflict after deadline, got %d %+v", status, res)
	}

	status, res = env.call(t, http.MethodGet, "/api/sessions/code/QUIZ1/state?participantId="+joined.ParticipantID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("state: %d", status)
	}
	view := decodeData[domain.View](t, res)
	if view.Kind != domain.ViewBreakLeaderboard || view.Me == nil || view.Me.Score != 17 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/code/NOPE", nil, http.StatusNotFound},
		{"unknown participant", http.MethodGet, "/api/participants/stats/missing", nil, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/participants/register", "{", http.StatusBadRequest},
		{"short name", http.MethodPost, "/api/participants/register", map[string]string{"name": "A", "sessionCode": "QUIZ1"}, http.StatusBadRequest},
		{"missing ids", http.MethodPost, "/api/participants/submit", map[string]string{}, http.StatusBadRequest},
		{"not live", http.MethodPost, "/api/participants/submit", map[string]string{"participantId": "p", "questionId": "q"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, res := env.call(t, tc.method, tc.path, "", tc.body)
			if status != tc.want || res.Success {
				t.Fatalf("expected %d, got %d %+v", tc.want, status, res)
			}
		})
	}
}

func TestPublicSessionHidesAdminStatus(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.StartSession(context.Background(), "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.svc.StopSession(context.Background(), "QUIZ1", domain.StatusCompleted); err != nil {
		t.Fatalf("stop: %v", err)
	}
	_, res := env.call(t, http.MethodGet, "/api/sessions/code/quiz1", "", nil)
	if got := decodeData[publicSession](t, res); got.Status != domain.StatusFinished || got.Title != "Demo" {
		t.Fatalf("unexpected public session %+v", got)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	if status, _ := env.call(t, http.MethodGet, "/api/sessions", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := env.call(t, http.MethodGet, "/api/sessions", "garbage", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
	if status, _ := env.call(t, http.MethodPost, "/api/admin/login", "", map[string]string{"passcode": "nope"}); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong passcode, got %d", status)
	}

	_, res := env.call(t, http.MethodPost, "/api/admin/login", "", map[string]string{"passcode": "letmein"})
	token := decodeData[map[string]string](t, res)["token"]
	if token == "" {
		t.Fatalf("expected token, got %+v", res)
	}

	status, res := env.call(t, http.MethodPost, "/api/sessions", token, map[string]string{"title": "Second", "sessionCode": "quiz2"})
	if status != http.StatusCreated {
		t.Fatalf("create session: %d %+v", status, res)
	}
	if status, _ := env.call(t, http.MethodPost, "/api/sessions", token, map[string]string{"sessionCode": "QUIZ2"}); status != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate code, got %d", status)
	}

	status, res = env.call(t, http.MethodPost, "/api/questions", token, map[string]any{
		"sessionCode":  "QUIZ2",
		"questionText": "Largest planet?",
		"options":      []domain.Option{{Text: "Jupiter", IsCorrect: true}, {Text: "Mars"}},
	})
	if status != http.StatusCreated {
		t.Fatalf("add question: %d %+v", status, res)
	}

	if status, _ := env.call(t, http.MethodPost, "/api/sessions/start", token, map[string]string{"sessionCode": "QUIZ2"}); status != http.StatusOK {
		t.Fatalf("start: %d", status)
	}
	if status, _ := env.call(t, http.MethodPost, "/api/sessions/QUIZ2/results", token, nil); status != http.StatusConflict {
		t.Fatalf("expected reveal to wait for expiry, got %d", status)
	}
	if status, _ := env.call(t, http.MethodPost, "/api/sessions/QUIZ2/next", token, nil); status != http.StatusOK {
		t.Fatalf("next: %d", status)
	}
	status, res = env.call(t, http.MethodGet, "/api/sessions/code/QUIZ2", "", nil)
	if got := decodeData[publicSession](t, res); status != http.StatusOK || got.Status != domain.StatusFinished {
		t.Fatalf("expected finished session, got %d %+v", status, got)
	}

	if status, _ := env.call(t, http.MethodDelete, "/api/sessions/QUIZ2", token, nil); status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	if status, _ := env.call(t, http.MethodGet, "/api/sessions/code/QUIZ2", "", nil); status != http.StatusNotFound {
		t.Fatalf("expected deleted session to be gone, got %d", status)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	if status, res := env.call(t, http.MethodGet, "/healthz", "", nil); status != http.StatusOK || !res.Success {
		t.Fatalf("unexpected health %d %+v", status, res)
	}
}
