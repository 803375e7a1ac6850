package models

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionFull           = errors.New("session is full")
	ErrUnauthorized          = errors.New("only the host can perform this action")
	ErrNotInSession          = errors.New("not in a session")
	ErrNotEnoughParticipants = errors.New("at least two participants are needed to start")
	ErrSessionNotStarted     = errors.New("session has not started yet")
	ErrSessionClosed         = errors.New("session has ended")
	ErrSessionCodeTaken      = errors.New("session code already in use")
	ErrInvalidSessionCode    = errors.New("invalid session code")
	ErrInvalidSessionConfig  = errors.New("invalid session settings")
)

// Participant errors
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidParticipant  = errors.New("host cannot remove themselves")
	ErrRemovedFromSession  = errors.New("you were removed from this session")
	ErrDuplicateSwipe      = errors.New("recipe already swiped")
)

// Recipe errors
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrNoMoreRecipes  = errors.New("no more recipes")
)

// PersistenceError reports a failed call to the persistence gateway,
// including connectivity loss.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err for operation op. A nil err stays nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// SessionCreationError reports that a new session could not be stored.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("failed to create session: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// RetryExhaustedError reports a gateway call that kept failing after every
// allowed attempt. It is never returned for a first-attempt failure.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }
