package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// Store is an in-memory implementation of the app store interfaces
// (user state, question catalog, answer log, leaderboards). Used by
// tests and by demo mode when Postgres is not configured.
type Store struct {
	mu           sync.RWMutex
	questions    map[int64]domain.Question
	byDifficulty map[int][]int64
	states       map[string]domain.UserState
	logs         []domain.AnswerLogEntry
	seenKeys     map[string]struct{}
	scores       map[string]domain.LeaderboardRow
	streaks      map[string]domain.LeaderboardRow
}

func NewStore() *Store {
	return &Store{
		questions:    make(map[int64]domain.Question),
		byDifficulty: make(map[int][]int64),
		states:       make(map[string]domain.UserState),
		seenKeys:     make(map[string]struct{}),
		scores:       make(map[string]domain.LeaderboardRow),
		streaks:      make(map[string]domain.LeaderboardRow),
	}
}

// SeedQuestions loads a catalog. Intended for startup/demo wiring and
// tests; the catalog is immutable afterwards as far as callers go.
func (s *Store) SeedQuestions(questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if _, exists := s.questions[q.ID]; exists {
			continue
		}
		s.questions[q.ID] = q
		s.byDifficulty[q.Difficulty] = append(s.byDifficulty[q.Difficulty], q.ID)
	}
	for d := range s.byDifficulty {
		sort.Slice(s.byDifficulty[d], func(i, j int) bool { return s.byDifficulty[d][i] < s.byDifficulty[d][j] })
	}
}

func (s *Store) QuestionByID(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) QuestionIDsByDifficulty(_ context.Context, difficulty int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDifficulty[difficulty]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *Store) GetUserState(_ context.Context, userID string) (domain.UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok {
		return domain.UserState{}, domain.ErrUserStateNotFound
	}
	return state, nil
}

func (s *Store) CreateUserState(_ context.Context, userID, sessionID string) (domain.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[userID]; ok {
		return state, nil
	}
	state := domain.UserState{
		UserID:            userID,
		CurrentDifficulty: domain.MinDifficulty,
		SessionID:         sessionID,
	}
	s.states[userID] = state
	return state, nil
}

func (s *Store) UpdateSessionID(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return domain.ErrUserStateNotFound
	}
	state.SessionID = sessionID
	s.states[userID] = state
	return nil
}

func (s *Store) ResetStreak(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return domain.ErrUserStateNotFound
	}
	state.Streak = 0
	s.states[userID] = state
	return nil
}

// CommitAnswer mirrors the transactional store: the version check and
// the idempotency-key uniqueness both gate the whole commit.
func (s *Store) CommitAnswer(_ context.Context, commit domain.AnswerCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[commit.UserID]
	if !ok {
		return domain.ErrUserStateNotFound
	}
	if state.StateVersion != commit.ExpectedVersion {
		return domain.ErrVersionConflict
	}
	if _, dup := s.seenKeys[commit.Log.IdempotencyKey]; dup {
		return domain.ErrAlreadyProcessed
	}

	answeredAt := commit.AnsweredAt
	questionID := commit.QuestionID
	state.CurrentDifficulty = commit.NewDifficulty
	state.Streak = commit.NewStreak
	state.MaxStreak = commit.NewMaxStreak
	state.TotalScore = commit.NewTotalScore
	state.LastQuestionID = &questionID
	state.LastAnswerAt = &answeredAt
	state.StateVersion++
	if commit.SessionID != "" {
		state.SessionID = commit.SessionID
	}
	s.states[commit.UserID] = state

	s.seenKeys[commit.Log.IdempotencyKey] = struct{}{}
	s.logs = append(s.logs, commit.Log)
	s.scores[commit.UserID] = domain.LeaderboardRow{UserID: commit.UserID, Value: commit.NewTotalScore, UpdatedAt: answeredAt}
	s.streaks[commit.UserID] = domain.LeaderboardRow{UserID: commit.UserID, Value: int64(commit.NewMaxStreak), UpdatedAt: answeredAt}
	return nil
}

func (s *Store) CountScoresAbove(_ context.Context, score int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.scores {
		if row.Value > score {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountStreaksAbove(_ context.Context, streak int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.streaks {
		if row.Value > int64(streak) {
			count++
		}
	}
	return count, nil
}

func (s *Store) TopScores(_ context.Context, n int) ([]domain.LeaderboardRow, error) {
	return s.top(s.scores, n), nil
}

func (s *Store) TopStreaks(_ context.Context, n int) ([]domain.LeaderboardRow, error) {
	return s.top(s.streaks, n), nil
}

func (s *Store) top(rows map[string]domain.LeaderboardRow, n int) []domain.LeaderboardRow {
	s.mu.RLock()
	out := make([]domain.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Store) RecentAnswers(_ context.Context, userID string, since time.Time, limit int) ([]domain.AnswerLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnswerLogEntry, 0, limit)
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.logs[i]
		if entry.UserID != userID || entry.AnsweredAt.Before(since) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// AnswerLogSize is test-only visibility into the audit trail.
func (s *Store) AnswerLogSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}
