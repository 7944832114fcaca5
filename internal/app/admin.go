package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

const defaultSessionTitle = "Untitled Session"

// CreateSession opens a new session in the lobby.
func (s *QuizService) CreateSession(ctx context.Context, code, title string) (domain.Session, error) {
	code = domain.NormalizeCode(code)
	if !domain.IsSessionCode(code) {
		return domain.Session{}, domain.Invalid("session code must be 2-32 letters, digits, '-' or '_'")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	session := domain.Session{
		Code:      code,
		Title:     title,
		Status:    domain.StatusWaiting,
		CreatedAt: s.clock.Now(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *QuizService) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.ListSessions(ctx)
}

// GetSession returns the stored session. Callers facing players should use Public() on the status.
func (s *QuizService) GetSession(ctx context.Context, code string) (domain.Session, error) {
	return s.sessions.GetSession(ctx, domain.NormalizeCode(code))
}

// DeleteSession removes a session with all its questions, players and responses.
func (s *QuizService) DeleteSession(ctx context.Context, code string) error {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return err
	}
	if err := s.wipePlayers(ctx, session.Code); err != nil {
		return err
	}
	if err := s.questions.DeleteQuestions(ctx, session.Code); err != nil {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, session.Code); err != nil {
		return err
	}
	s.broadcaster.Broadcast(session.Code, EventForceStop, nil)
	return nil
}

// ResetSession sends a session back to the lobby and drops its players. Questions are kept.
func (s *QuizService) ResetSession(ctx context.Context, code string) (domain.Session, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.wipePlayers(ctx, session.Code); err != nil {
		return domain.Session{}, err
	}
	session = game.Reset(session)
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	s.broadcaster.Broadcast(session.Code, EventForceStop, nil)
	return session, nil
}

func (s *QuizService) wipePlayers(ctx context.Context, code string) error {
	if err := s.responses.DeleteResponses(ctx, code); err != nil {
		return err
	}
	return s.participants.DeleteParticipants(ctx, code)
}

// StartSession arms the first question of a waiting session.
func (s *QuizService) StartSession(ctx context.Context, code string) (domain.Session, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Session{}, err
	}
	questions, err := s.questions.ListQuestions(ctx, session.Code)
	if err != nil {
		return domain.Session{}, err
	}
	ordered := game.SortQuestions(questions)
	session, err = game.Start(session, game.NextQuestion(ordered, session), s.clock.Now(), s.cfg.Rules.Budget)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("session", session.Code).Int("questions", len(ordered)).Msg("session started")
	s.broadcaster.Broadcast(session.Code, EventStarted, map[string]string{"sessionCode": session.Code})
	return session, s.broadcastView(ctx, session.Code)
}

// AdvanceQuestion arms the next question, or finishes the session after the last one.
// It may be called while a question is still live to skip it.
func (s *QuizService) AdvanceQuestion(ctx context.Context, code string) (domain.Session, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Session{}, err
	}
	questions, err := s.questions.ListQuestions(ctx, session.Code)
	if err != nil {
		return domain.Session{}, err
	}
	next := game.NextQuestion(game.SortQuestions(questions), session)
	session, err = game.Advance(session, next, s.clock.Now(), s.cfg.Rules.Budget)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	if session.Status.Terminal() {
		log.Info().Str("session", session.Code).Msg("session finished")
	}
	return session, s.broadcastView(ctx, session.Code)
}

// RevealResults announces the correct answer of the question that just expired, followed by
// the break leaderboard.
func (s *QuizService) RevealResults(ctx context.Context, code string) (domain.RevealedAnswer, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.RevealedAnswer{}, err
	}
	if session.Status != domain.StatusActive || !session.HasCurrentQuestion() {
		return domain.RevealedAnswer{}, domain.ErrQuestionNotActive
	}
	if game.IsLive(session.QuestionEndsAt, s.clock.Now()) {
		return domain.RevealedAnswer{}, domain.ErrQuestionStillLive
	}
	question, err := s.questions.GetQuestion(ctx, session.CurrentQuestionID)
	if err != nil {
		return domain.RevealedAnswer{}, err
	}
	revealed := domain.RevealedAnswer{QuestionID: question.ID, CorrectAnswer: "N/A"}
	if opt, ok := game.CorrectOption(question); ok {
		revealed.CorrectAnswer = opt.Text
	}
	s.broadcaster.Broadcast(session.Code, EventResult, revealed)
	return revealed, s.broadcastView(ctx, session.Code)
}

// StopSession ends a session early. An empty status means COMPLETED.
func (s *QuizService) StopSession(ctx context.Context, code string, status domain.Status) (domain.Session, error) {
	if status == "" {
		status = domain.StatusCompleted
	}
	status = domain.Status(strings.ToUpper(string(status)))
	if !status.Terminal() {
		return domain.Session{}, domain.Invalid("status must be %s or %s", domain.StatusCompleted, domain.StatusFinished)
	}
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Session{}, err
	}
	session, err = game.Finish(session, status)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("session", session.Code).Str("status", string(status)).Msg("session stopped")
	if err := s.broadcastView(ctx, session.Code); err != nil {
		return session, err
	}
	s.broadcaster.Broadcast(session.Code, EventForceStop, nil)
	return session, nil
}

// ListQuestions returns a session's questions with correctness flags, in play order.
func (s *QuizService) ListQuestions(ctx context.Context, code string) ([]domain.Question, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListQuestions(ctx, session.Code)
	if err != nil {
		return nil, err
	}
	return game.SortQuestions(questions), nil
}

// AddQuestion appends a question to a session.
func (s *QuizService) AddQuestion(ctx context.Context, code, text string, options []domain.Option) (domain.Question, error) {
	if err := game.ValidateQuestion(text, options); err != nil {
		return domain.Question{}, err
	}
	existing, err := s.ListQuestions(ctx, code)
	if err != nil {
		return domain.Question{}, err
	}
	position := 0
	if n := len(existing); n > 0 {
		position = existing[n-1].Position + 1
	}
	q := domain.Question{
		ID:          uuid.NewString(),
		SessionCode: domain.NormalizeCode(code),
		Position:    position,
		Text:        strings.TrimSpace(text),
		Options:     trimOptions(options),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// UpdateQuestion replaces the text and options of a question. Its position is kept.
func (s *QuizService) UpdateQuestion(ctx context.Context, id, text string, options []domain.Option) (domain.Question, error) {
	if err := game.ValidateQuestion(text, options); err != nil {
		return domain.Question{}, err
	}
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	s.warnIfLive(ctx, q)
	q.Text = strings.TrimSpace(text)
	q.Options = trimOptions(options)
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, id string) error {
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	s.warnIfLive(ctx, q)
	return s.questions.DeleteQuestion(ctx, id)
}

// ReorderQuestions sets the play order. ids must name every question of the session exactly once.
func (s *QuizService) ReorderQuestions(ctx context.Context, code string, ids []string) ([]domain.Question, error) {
	existing, err := s.ListQuestions(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(existing) {
		return nil, domain.Invalid("expected %d question ids, got %d", len(existing), len(ids))
	}
	known := make(map[string]bool, len(existing))
	for _, q := range existing {
		known[q.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, domain.Invalid("question %s is not in this session or is listed twice", id)
		}
		known[id] = false
	}
	code = domain.NormalizeCode(code)
	if err := s.questions.ReorderQuestions(ctx, code, ids); err != nil {
		return nil, err
	}
	return s.ListQuestions(ctx, code)
}

// warnIfLive logs edits to the question players are currently answering. Keeping the live
// question stable is left to the admin.
func (s *QuizService) warnIfLive(ctx context.Context, q domain.Question) {
	session, err := s.sessions.GetSession(ctx, q.SessionCode)
	if err != nil || session.CurrentQuestionID != q.ID {
		return
	}
	if game.PhaseOf(session, s.clock.Now()) == game.PhaseLive {
		log.Warn().Str("session", session.Code).Str("question_id", q.ID).Msg("editing the live question")
	}
}

func trimOptions(options []domain.Option) []domain.Option {
	out := make([]domain.Option, len(options))
	for i, opt := range options {
		out[i] = domain.Option{Text: strings.TrimSpace(opt.Text), IsCorrect: opt.IsCorrect}
	}
	return out
}
