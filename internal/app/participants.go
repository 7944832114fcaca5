package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

const minNameLength = 2

// Join registers a player in a session, or resumes them when ExistingParticipantID still
// belongs to that session.
func (s *QuizService) Join(ctx context.Context, req domain.JoinRequest) (domain.JoinResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.JoinResult{}, domain.Invalid("sessionCode is required")
	}
	session, err := s.sessions.GetSession(ctx, domain.NormalizeCode(req.SessionCode))
	if err != nil {
		return domain.JoinResult{}, err
	}
	if session.Status.Terminal() {
		return domain.JoinResult{}, domain.ErrSessionClosed
	}

	if req.ExistingParticipantID != "" {
		p, err := s.participants.GetParticipant(ctx, req.ExistingParticipantID)
		switch {
		case err == nil && p.SessionCode == session.Code:
			return joinResult(p, session, true), nil
		case err != nil && !errors.Is(err, domain.ErrParticipantNotFound):
			return domain.JoinResult{}, err
		}
	}

	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < minNameLength {
		return domain.JoinResult{}, domain.Invalid("name must be at least %d characters", minNameLength)
	}
	p := domain.Participant{
		ID:          uuid.NewString(),
		SessionCode: session.Code,
		Name:        name,
		JoinCode:    s.newJoinCode(),
		JoinedAt:    s.clock.Now(),
	}
	if err := s.participants.CreateParticipant(ctx, p); err != nil {
		return domain.JoinResult{}, err
	}
	return joinResult(p, session, false), nil
}

func joinResult(p domain.Participant, session domain.Session, rejoined bool) domain.JoinResult {
	res := domain.JoinResult{
		ParticipantID: p.ID,
		Name:          p.Name,
		JoinCode:      p.JoinCode,
		SessionCode:   session.Code,
		SessionTitle:  session.Title,
		SessionStatus: session.Status.Public(),
		Rejoined:      rejoined,
	}
	if rejoined {
		score := p.TotalScore
		res.TotalScore = &score
	}
	return res
}

// Leaderboard returns the public standings of a session.
func (s *QuizService) Leaderboard(ctx context.Context, code string) ([]domain.RankEntry, error) {
	return s.rank(ctx, code, s.cfg.LeaderboardLimit)
}

// AdminLeaderboard returns the full standings of a session.
func (s *QuizService) AdminLeaderboard(ctx context.Context, code string) ([]domain.RankEntry, error) {
	return s.rank(ctx, code, 0)
}

func (s *QuizService) rank(ctx context.Context, code string, limit int) ([]domain.RankEntry, error) {
	session, err := s.sessions.GetSession(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	participants, err := s.participants.ListParticipants(ctx, session.Code)
	if err != nil {
		return nil, err
	}
	return game.Rank(participants, limit), nil
}

// ParticipantInSession reports whether participantID was issued by the session with this code.
// Unknown ids are not an error.
func (s *QuizService) ParticipantInSession(ctx context.Context, code, participantID string) (bool, error) {
	if participantID == "" {
		return false, nil
	}
	p, err := s.participants.GetParticipant(ctx, participantID)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.SessionCode == domain.NormalizeCode(code), nil
}

// ParticipantStats counts correct, wrong and unanswered questions for one player.
func (s *QuizService) ParticipantStats(ctx context.Context, participantID string) (domain.ParticipantStats, error) {
	p, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return domain.ParticipantStats{}, err
	}
	questions, err := s.questions.ListQuestions(ctx, p.SessionCode)
	if err != nil {
		return domain.ParticipantStats{}, err
	}
	attempted := len(p.Attempted)
	correct := len(p.Correct)
	timeout := len(questions) - attempted
	if timeout < 0 {
		timeout = 0
	}
	return domain.ParticipantStats{
		Correct:    correct,
		Wrong:      attempted - correct,
		Timeout:    timeout,
		TotalScore: p.TotalScore,
	}, nil
}

// GameHistory lists every question of the player's session with what they picked.
// Status comes from the participant's attempted/correct sets; responses only add the label.
func (s *QuizService) GameHistory(ctx context.Context, participantID string) ([]domain.HistoryItem, error) {
	p, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListQuestions(ctx, p.SessionCode)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListResponses(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]string, len(responses))
	for _, r := range responses {
		selected[r.QuestionID] = r.SelectedOption
	}

	items := make([]domain.HistoryItem, 0, len(questions))
	for _, q := range game.SortQuestions(questions) {
		item := domain.HistoryItem{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			CorrectAnswer: "N/A",
			UserSelected:  domain.NoAttempt,
			Status:        domain.ReviewTimeout,
		}
		if opt, ok := game.CorrectOption(q); ok {
			item.CorrectAnswer = opt.Text
		}
		if p.HasAttempted(q.ID) {
			item.UserSelected = selected[q.ID]
			item.Status = domain.ReviewWrong
			if p.AnsweredCorrectly(q.ID) {
				item.Status = domain.ReviewCorrect
			}
		}
		items = append(items, item)
	}
	return items, nil
}
