package app

import (
	"context"

	"livequiz-service/internal/domain"
)

// SessionRepository abstracts how sessions are stored (in-memory, Redis, Postgres).
// Codes passed in are already normalized.
type SessionRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, code string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	// SaveSession overwrites status, title and the current-question pointer.
	SaveSession(ctx context.Context, session domain.Session) error
	// FindSessionByCurrentQuestion returns the session whose current question is questionID.
	FindSessionByCurrentQuestion(ctx context.Context, questionID string) (domain.Session, error)
	DeleteSession(ctx context.Context, code string) error
}

// QuestionRepository loads and edits quiz content.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	// ListQuestions returns a session's questions ordered by position then creation time.
	ListQuestions(ctx context.Context, sessionCode string) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	// ReorderQuestions assigns positions 0..n-1 following ids.
	ReorderQuestions(ctx context.Context, sessionCode string, ids []string) error
	DeleteQuestions(ctx context.Context, sessionCode string) error
}

// ParticipantRepository stores players and their scores.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant domain.Participant) error
	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
	ListParticipants(ctx context.Context, sessionCode string) ([]domain.Participant, error)
	// ApplyAnswer atomically adds delta and marks questionID attempted (and correct) unless the
	// participant already attempted it. applied is false for repeats; total is the score after
	// the call either way.
	ApplyAnswer(ctx context.Context, participantID, questionID string, delta int, correct bool) (applied bool, total int, err error)
	DeleteParticipants(ctx context.Context, sessionCode string) error
}

// ResponseRepository keeps the per-submission audit trail.
type ResponseRepository interface {
	CreateResponse(ctx context.Context, response domain.Response) error
	ListResponses(ctx context.Context, participantID string) ([]domain.Response, error)
	DeleteResponses(ctx context.Context, sessionCode string) error
}

// Store bundles every repository the service needs.
type Store interface {
	SessionRepository
	QuestionRepository
	ParticipantRepository
	ResponseRepository
}

// Broadcaster fans events out to every socket subscribed to a session room.
// Implementations must not block the caller.
type Broadcaster interface {
	Broadcast(sessionCode, event string, payload any)
}

// Realtime event names shared by the service and the transport.
const (
	EventQuestion          = "game:question"
	EventRanks             = "game:ranks"
	EventOver              = "game:over"
	EventResult            = "game:result"
	EventStarted           = "game:started"
	EventForceStop         = "game:force_stop"
	EventIdle              = "sync:idle"
	EventLeaderboardUpdate = "leaderboard:update"
	EventSessionUpdate     = "session:update"
	EventAdminStats        = "admin:stats"
	EventError             = "error"
)
