package game

import (
	"fmt"
	"sort"
	"time"

	"livequiz-service/internal/domain"
)

// Phase is the derived sub-state a session is in at a given instant.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseLive  Phase = "live"
	PhaseBreak Phase = "break"
	PhaseOver  Phase = "over"
)

// Pacing controls how a session moves from one question to the next.
type Pacing string

// PacingManual leaves every transition to an admin action. The break after a question
// lasts until the admin advances or stops the session.
const PacingManual Pacing = "manual"

// PhaseOf derives the phase from stored fields only; no cached "is active" flag is trusted.
func PhaseOf(s domain.Session, now time.Time) Phase {
	switch {
	case s.Status.Terminal():
		return PhaseOver
	case s.Status == domain.StatusActive:
		if s.HasCurrentQuestion() && IsLive(s.QuestionEndsAt, now) {
			return PhaseLive
		}
		return PhaseBreak
	default:
		return PhaseIdle
	}
}

// Start moves a waiting session to ACTIVE and arms its first question.
func Start(s domain.Session, first *domain.Question, now time.Time, budget time.Duration) (domain.Session, error) {
	if s.Status != domain.StatusWaiting {
		return s, fmt.Errorf("%w: cannot start a %s session", domain.ErrInvalidTransition, s.Status)
	}
	if first == nil {
		return s, domain.Invalid("session %s has no questions", s.Code)
	}
	s.Status = domain.StatusActive
	arm(&s, *first, now, budget)
	return s, nil
}

// Advance arms the next question, or finishes the session when next is nil.
func Advance(s domain.Session, next *domain.Question, now time.Time, budget time.Duration) (domain.Session, error) {
	if s.Status != domain.StatusActive {
		return s, fmt.Errorf("%w: cannot advance a %s session", domain.ErrInvalidTransition, s.Status)
	}
	if next == nil {
		return Finish(s, domain.StatusFinished)
	}
	arm(&s, *next, now, budget)
	return s, nil
}

// Finish moves a session to a terminal status and disarms the current question.
func Finish(s domain.Session, status domain.Status) (domain.Session, error) {
	if !status.Terminal() {
		return s, fmt.Errorf("%w: %s is not a terminal status", domain.ErrInvalidTransition, status)
	}
	if s.Status.Terminal() {
		return s, fmt.Errorf("%w: session %s already ended", domain.ErrInvalidTransition, s.Code)
	}
	s.Status = status
	disarm(&s)
	return s, nil
}

// Reset returns a session to the lobby.
func Reset(s domain.Session) domain.Session {
	s.Status = domain.StatusWaiting
	disarm(&s)
	return s
}

func arm(s *domain.Session, q domain.Question, now time.Time, budget time.Duration) {
	endsAt := now.Add(budget)
	s.CurrentQuestionID = q.ID
	s.CurrentPosition = q.Position
	s.QuestionEndsAt = &endsAt
}

func disarm(s *domain.Session) {
	s.CurrentQuestionID = ""
	s.CurrentPosition = 0
	s.QuestionEndsAt = nil
}

// SortQuestions orders questions by position, then creation time, then id.
func SortQuestions(questions []domain.Question) []domain.Question {
	sorted := make([]domain.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sorted
}

// QuestionNumber returns the 1-based position of id in an ordered list, or 0 if absent.
func QuestionNumber(ordered []domain.Question, id string) int {
	for i, q := range ordered {
		if q.ID == id {
			return i + 1
		}
	}
	return 0
}

// NextQuestion returns the question to play after the session's current one, the first question
// when nothing is current, or nil when the list is exhausted. If the current question is gone,
// play resumes at the first question positioned after it.
func NextQuestion(ordered []domain.Question, s domain.Session) *domain.Question {
	if s.CurrentQuestionID == "" {
		if len(ordered) == 0 {
			return nil
		}
		return &ordered[0]
	}
	if n := QuestionNumber(ordered, s.CurrentQuestionID); n > 0 {
		if n >= len(ordered) {
			return nil
		}
		return &ordered[n]
	}
	for i := range ordered {
		if ordered[i].Position > s.CurrentPosition {
			return &ordered[i]
		}
	}
	return nil
}

// SortSessions orders sessions newest first, then by code.
func SortSessions(sessions []domain.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Code < b.Code
	})
}
