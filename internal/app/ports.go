package app

import (
	"context"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// StateStore persists per-user quiz state (Postgres, in-memory for tests).
type StateStore interface {
	// GetUserState returns domain.ErrUserStateNotFound when no row exists.
	GetUserState(ctx context.Context, userID string) (domain.UserState, error)
	// CreateUserState inserts the user and a default state row if absent
	// (ignore-if-exists) and returns the current row.
	CreateUserState(ctx context.Context, userID, sessionID string) (domain.UserState, error)
	UpdateSessionID(ctx context.Context, userID, sessionID string) error
	// ResetStreak persists a lazy streak-decay reset.
	ResetStreak(ctx context.Context, userID string) error
	// CommitAnswer applies one answer in a single transaction: the state
	// update conditioned on ExpectedVersion (zero rows affected aborts the
	// whole transaction with domain.ErrVersionConflict), the audit append
	// (idempotency-key conflict aborts with domain.ErrAlreadyProcessed),
	// and both leaderboard upserts.
	CommitAnswer(ctx context.Context, commit domain.AnswerCommit) error
}

// QuestionBank loads catalog content.
type QuestionBank interface {
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error)
}

// LeaderboardReader serves rank counts and top-N listings for both boards.
type LeaderboardReader interface {
	CountScoresAbove(ctx context.Context, score int64) (int, error)
	CountStreaksAbove(ctx context.Context, streak int) (int, error)
	TopScores(ctx context.Context, n int) ([]domain.LeaderboardRow, error)
	TopStreaks(ctx context.Context, n int) ([]domain.LeaderboardRow, error)
}

// AnswerLogReader reads back the audit trail for metrics projections.
type AnswerLogReader interface {
	RecentAnswers(ctx context.Context, userID string, since time.Time, limit int) ([]domain.AnswerLogEntry, error)
}

// StateCache is the expiring write-through cache in front of StateStore.
type StateCache interface {
	GetState(ctx context.Context, userID string) (domain.UserState, bool, error)
	SetState(ctx context.Context, state domain.UserState) error
	Invalidate(ctx context.Context, userID string) error
}

// ResponseCache stores serialized answer responses keyed by idempotency
// key so retried submissions replay byte-identical results.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, response []byte) error
}

// SessionTracker remembers which questions a (user, session) pair has
// already been shown, with a bounded lifetime.
type SessionTracker interface {
	Asked(ctx context.Context, userID, sessionID string) ([]int64, error)
	MarkAsked(ctx context.Context, userID, sessionID string, questionID int64) error
}

// RateLimiter bounds request rates per (user, endpoint).
type RateLimiter interface {
	Allow(ctx context.Context, userID, endpoint string) (allowed bool, remaining int, err error)
}

// LeaderboardNotifier receives a signal after each committed answer so
// live feeds can push fresh snapshots.
type LeaderboardNotifier interface {
	AnswerCommitted(ctx context.Context)
}
