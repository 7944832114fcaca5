package app

import (
	"context"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

// Sync tells a client what it should be showing right now. Socket subscriptions, reconnects
// and REST polls all go through here so there is exactly one answer per instant.
func (s *QuizService) Sync(ctx context.Context, code, participantID string) (domain.View, error) {
	session, err := s.sessions.GetSession(ctx, domain.NormalizeCode(code))
	if err != nil {
		return domain.View{}, err
	}
	now := s.clock.Now()

	var (
		questions    []domain.Question
		participants []domain.Participant
	)
	switch game.PhaseOf(session, now) {
	case game.PhaseLive:
		if questions, err = s.questions.ListQuestions(ctx, session.Code); err != nil {
			return domain.View{}, err
		}
		if game.QuestionNumber(questions, session.CurrentQuestionID) > 0 {
			break
		}
		// The live question was deleted; fall back to standings.
		fallthrough
	case game.PhaseBreak, game.PhaseOver:
		if participants, err = s.participants.ListParticipants(ctx, session.Code); err != nil {
			return domain.View{}, err
		}
	}
	return BuildView(session, questions, participants, participantID, now, s.cfg), nil
}

// BuildView is the pure core of Sync: the same inputs always give the same view.
func BuildView(session domain.Session, questions []domain.Question, participants []domain.Participant, participantID string, now time.Time, cfg Config) domain.View {
	view := domain.View{Status: session.Status.Public()}

	switch game.PhaseOf(session, now) {
	case game.PhaseIdle:
		view.Kind = domain.ViewIdle
		return view
	case game.PhaseLive:
		ordered := game.SortQuestions(questions)
		if n := game.QuestionNumber(ordered, session.CurrentQuestionID); n > 0 {
			view.Kind = domain.ViewActiveQuestion
			view.Question = &domain.LiveQuestion{
				Number:   n,
				Total:    len(ordered),
				Time:     game.RemainingSeconds(session.QuestionEndsAt, now),
				Question: game.Sanitize(ordered[n-1]),
			}
			return view
		}
		view.Kind = domain.ViewBreakLeaderboard
		view.Ranks = game.Rank(participants, cfg.BreakSize)
	case game.PhaseBreak:
		view.Kind = domain.ViewBreakLeaderboard
		view.Ranks = game.Rank(participants, cfg.BreakSize)
	case game.PhaseOver:
		view.Kind = domain.ViewGameOver
		view.Over = &domain.GameOver{
			Winners:     game.Rank(participants, cfg.WinnersSize),
			Leaderboard: game.Rank(participants, cfg.LeaderboardLimit),
		}
	}
	view.Me = game.RankOf(participants, participantID)
	return view
}

// ViewEvent maps a view onto the realtime event that renders it.
func ViewEvent(view domain.View) (string, any) {
	switch view.Kind {
	case domain.ViewActiveQuestion:
		return EventQuestion, view.Question
	case domain.ViewBreakLeaderboard:
		return EventRanks, view.Ranks
	case domain.ViewGameOver:
		return EventOver, view.Over
	default:
		return EventIdle, nil
	}
}

// broadcastView pushes the current view of a session to its whole room.
func (s *QuizService) broadcastView(ctx context.Context, code string) error {
	view, err := s.Sync(ctx, code, "")
	if err != nil {
		return err
	}
	event, payload := ViewEvent(view)
	s.broadcaster.Broadcast(code, event, payload)
	return nil
}
