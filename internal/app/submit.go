package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

// SubmitAnswer scores one answer. A participant is credited at most once per question no
// matter how many times or how concurrently they submit.
func (s *QuizService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if err := s.validate.Struct(sub); err != nil {
		return domain.AnswerResult{}, domain.Invalid("participantId and questionId are required")
	}

	session, err := s.sessions.FindSessionByCurrentQuestion(ctx, sub.QuestionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.AnswerResult{}, domain.ErrQuestionNotActive
	}
	if err != nil {
		return domain.AnswerResult{}, err
	}
	now := s.clock.Now()
	if session.Status != domain.StatusActive || !game.IsLive(session.QuestionEndsAt, now) {
		return domain.AnswerResult{}, domain.ErrQuestionNotActive
	}

	question, err := s.questions.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	participant, err := s.participants.GetParticipant(ctx, sub.ParticipantID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if participant.SessionCode != session.Code {
		return domain.AnswerResult{}, fmt.Errorf("%w: %s is not in session %s", domain.ErrParticipantNotFound, participant.ID, session.Code)
	}

	correct := game.IsCorrect(question, sub.SelectedOption)
	delta := s.cfg.Rules.Delta(correct, sub.TimeLeft)

	applied, total, err := s.participants.ApplyAnswer(ctx, participant.ID, question.ID, delta, correct)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !applied {
		return domain.AnswerResult{Success: true, Message: domain.MessageAlreadyAnswered, TotalScore: total}, nil
	}

	s.recordResponse(ctx, domain.Response{
		ID:             uuid.NewString(),
		SessionCode:    session.Code,
		ParticipantID:  participant.ID,
		QuestionID:     question.ID,
		SelectedOption: sub.SelectedOption,
		IsCorrect:      correct,
		Points:         delta,
		TimeLeft:       s.cfg.Rules.ClampTimeLeft(sub.TimeLeft),
		CreatedAt:      now,
	})
	s.broadcaster.Broadcast(session.Code, EventLeaderboardUpdate, nil)

	msg := domain.MessageWrong
	if correct {
		msg = domain.MessageCorrect
	}
	return domain.AnswerResult{Success: true, Message: msg, Added: delta, Correct: correct, TotalScore: total}, nil
}

// recordResponse writes the audit row. The score is already committed, so failures are only logged.
func (s *QuizService) recordResponse(ctx context.Context, resp domain.Response) {
	if err := s.responses.CreateResponse(ctx, resp); err != nil {
		log.Warn().Err(err).
			Str("participant_id", resp.ParticipantID).
			Str("question_id", resp.QuestionID).
			Msg("response audit write failed")
	}
}
