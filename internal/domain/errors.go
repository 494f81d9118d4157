package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a submitted question ID is not in the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserStateNotFound is returned when no state row exists for a user.
	ErrUserStateNotFound = errors.New("user state not found")
	// ErrVersionConflict means the submission carried a stale state version;
	// the caller must reload current state and resubmit.
	ErrVersionConflict = errors.New("state version conflict")
	// ErrAlreadyProcessed means the idempotency key was seen before; the
	// original response must be replayed, never recomputed.
	ErrAlreadyProcessed = errors.New("answer already processed")
	// ErrNoQuestionsAvailable means no eligible question exists at any
	// difficulty. Operational condition, not a user error.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrRateLimited means the per-user request budget for the current
	// window is spent.
	ErrRateLimited = errors.New("rate limit exceeded")
)
