package services

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrEligibility   = errors.New("not eligible")
	ErrDuplicate     = errors.New("duplicate")
	ErrChallengeFull = errors.New("challenge full")
	ErrAuthorization = errors.New("not authorized")
)

// Duplicate sub-kinds; each also matches ErrDuplicate.
var (
	ErrAlreadyJoined = fmt.Errorf("already joined: %w", ErrDuplicate)
	ErrDuplicateVote = fmt.Errorf("already voted: %w", ErrDuplicate)
	ErrSelfVote      = fmt.Errorf("cannot vote on own submission: %w", ErrDuplicate)
)

// ChallengeError carries the failing operation alongside its kind.
type ChallengeError struct {
	Kind error
	Op   string
	Msg  string
}

func (e *ChallengeError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e *ChallengeError) Unwrap() error { return e.Kind }

func newErr(kind error, op, format string, args ...any) error {
	return &ChallengeError{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func validationErr(op, format string, args ...any) error {
	return newErr(ErrValidation, op, format, args...)
}

func notFound(op, what, id string) error {
	return newErr(ErrNotFound, op, "%s %s", what, id)
}
