package domain

import "time"

// Difficulty bounds for questions and adaptive state.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Question is an immutable catalog entry. The plaintext answer is never
// stored; only a hash of the normalized answer text.
type Question struct {
	ID                int64    `json:"id"`
	Difficulty        int      `json:"difficulty"`
	Prompt            string   `json:"prompt"`
	Choices           []string `json:"choices"`
	CorrectAnswerHash string   `json:"-"`
	Tags              []string `json:"tags,omitempty"`
}

// UserState is the per-user adaptive record. It is mutated only through
// the answer commit path; StateVersion advances exactly once per commit.
type UserState struct {
	UserID            string     `json:"userId"`
	CurrentDifficulty int        `json:"currentDifficulty"`
	Streak            int        `json:"streak"`
	MaxStreak         int        `json:"maxStreak"`
	TotalScore        int64      `json:"totalScore"`
	LastQuestionID    *int64     `json:"lastQuestionId"`
	LastAnswerAt      *time.Time `json:"lastAnswerAt"`
	SessionID         string     `json:"sessionId"`
	StateVersion      int        `json:"stateVersion"`
}

// AnswerRequest carries one logical answer submission.
type AnswerRequest struct {
	UserID         string
	SessionID      string
	QuestionID     int64
	Answer         string
	StateVersion   int
	IdempotencyKey string
}

// AnswerOutcome is the externally visible result of a processed answer.
type AnswerOutcome struct {
	Correct               bool  `json:"correct"`
	NewDifficulty         int   `json:"newDifficulty"`
	NewStreak             int   `json:"newStreak"`
	ScoreDelta            int   `json:"scoreDelta"`
	TotalScore            int64 `json:"totalScore"`
	StateVersion          int   `json:"stateVersion"`
	LeaderboardRankScore  int   `json:"leaderboardRankScore"`
	LeaderboardRankStreak int   `json:"leaderboardRankStreak"`
}

// AnswerLogEntry is the append-only audit record for a submission.
// StreakAtAnswer is the streak before the answer was applied.
type AnswerLogEntry struct {
	UserID         string
	QuestionID     int64
	Difficulty     int
	Answer         string
	Correct        bool
	ScoreDelta     int
	StreakAtAnswer int
	AnsweredAt     time.Time
	IdempotencyKey string
}

// AnswerCommit bundles everything the store writes in one transaction:
// the conditional state update, the audit append, and both leaderboard
// projections.
type AnswerCommit struct {
	UserID          string
	SessionID       string
	QuestionID      int64
	ExpectedVersion int
	NewDifficulty   int
	NewStreak       int
	NewMaxStreak    int
	NewTotalScore   int64
	AnsweredAt      time.Time
	Log             AnswerLogEntry
}

// NextQuestion is the payload served when a user requests a question.
type NextQuestion struct {
	QuestionID    int64    `json:"questionId"`
	Difficulty    int      `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	SessionID     string   `json:"sessionId"`
	StateVersion  int      `json:"stateVersion"`
	CurrentScore  int64    `json:"currentScore"`
	CurrentStreak int      `json:"currentStreak"`
}

// LeaderboardRow is one stored projection row; Value is totalScore for
// the score board and maxStreak for the streak board.
type LeaderboardRow struct {
	UserID    string
	Value     int64
	UpdatedAt time.Time
}

// RankedEntry is a leaderboard row with its computed rank.
type RankedEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"userId"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DifficultyBucket counts recent attempts at one difficulty level.
type DifficultyBucket struct {
	Difficulty int `json:"difficulty"`
	Count      int `json:"count"`
}

// RecentAnswer is one element of the last-10 correctness sequence.
type RecentAnswer struct {
	Difficulty int  `json:"difficulty"`
	Correct    bool `json:"correct"`
}

// UserMetrics is a read-only projection over UserState and AnswerLog.
type UserMetrics struct {
	CurrentDifficulty   int                `json:"currentDifficulty"`
	Streak              int                `json:"streak"`
	MaxStreak           int                `json:"maxStreak"`
	TotalScore          int64              `json:"totalScore"`
	Accuracy            float64            `json:"accuracy"`
	DifficultyHistogram []DifficultyBucket `json:"difficultyHistogram"`
	RecentPerformance   []RecentAnswer     `json:"recentPerformance"`
}
