package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no session matches a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a participant id does not resolve.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrQuestionNotFound indicates a question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrInvalidInput covers malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuestionNotActive is returned when an answer targets a question that is not live.
	ErrQuestionNotActive = errors.New("question not active or time up")
	// ErrQuestionStillLive is returned when an action requires the current question to have expired.
	ErrQuestionStillLive = errors.New("question is still live")
	// ErrSessionClosed is returned when joining a session that has finished.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionExists is returned when creating a session with a code already in use.
	ErrSessionExists = errors.New("session code already in use")
	// ErrInvalidTransition is returned when a lifecycle action does not apply to the current status.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrUnavailable marks transient store failures.
	ErrUnavailable = errors.New("store unavailable")
)

// Kind classifies errors for callers that need to pick a response code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindStateConflict
	KindTransient
)

// KindOf maps an error chain onto the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrQuestionNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrQuestionNotActive),
		errors.Is(err, ErrQuestionStillLive),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrSessionExists),
		errors.Is(err, ErrInvalidTransition):
		return KindStateConflict
	case errors.Is(err, ErrUnavailable):
		return KindTransient
	default:
		return KindInternal
	}
}

// Invalid wraps ErrInvalidInput with a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable marks err as a transient store failure while keeping the cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
