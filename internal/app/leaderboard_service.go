package app

import (
	"context"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// MaxTopN caps leaderboard listings.
const MaxTopN = 100

// LeaderboardUpdate is one snapshot pushed to live subscribers.
type LeaderboardUpdate struct {
	Scores    []domain.RankedEntry `json:"scores"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// LeaderboardService answers rank queries and fans out post-commit
// snapshots to websocket subscribers.
type LeaderboardService struct {
	board LeaderboardReader
	now   func() time.Time
	log   *zap.Logger

	mu          sync.Mutex
	subscribers map[chan LeaderboardUpdate]struct{}
}

func NewLeaderboardService(board LeaderboardReader, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		board:       board,
		now:         time.Now,
		log:         log,
		subscribers: make(map[chan LeaderboardUpdate]struct{}),
	}
}

// RankByScore is the dense strictly-greater rank: ties share a rank.
func (s *LeaderboardService) RankByScore(ctx context.Context, totalScore int64) (int, error) {
	above, err := s.board.CountScoresAbove(ctx, totalScore)
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

// RankByStreak mirrors RankByScore over the max-streak board.
func (s *LeaderboardService) RankByStreak(ctx context.Context, maxStreak int) (int, error) {
	above, err := s.board.CountStreaksAbove(ctx, maxStreak)
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

// TopScores lists the top n rows by total score, n capped at 100. Ranks
// are positional; ties keep storage order.
func (s *LeaderboardService) TopScores(ctx context.Context, n int) ([]domain.RankedEntry, error) {
	rows, err := s.board.TopScores(ctx, capN(n))
	if err != nil {
		return nil, err
	}
	return ranked(rows), nil
}

// TopStreaks lists the top n rows by max streak, n capped at 100.
func (s *LeaderboardService) TopStreaks(ctx context.Context, n int) ([]domain.RankedEntry, error) {
	rows, err := s.board.TopStreaks(ctx, capN(n))
	if err != nil {
		return nil, err
	}
	return ranked(rows), nil
}

// Subscribe returns a channel of live snapshots, primed with the current
// board. The caller must invoke cancel to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context) (<-chan LeaderboardUpdate, func(), error) {
	initial, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Prime before registering: once the channel is in the subscriber
	// set, concurrent commits may start filling the buffer.
	ch := make(chan LeaderboardUpdate, 8)
	ch <- initial

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// AnswerCommitted implements LeaderboardNotifier: every committed answer
// pushes a fresh snapshot to all subscribers.
func (s *LeaderboardService) AnswerCommitted(ctx context.Context) {
	s.mu.Lock()
	n := len(s.subscribers)
	s.mu.Unlock()
	if n == 0 {
		return
	}

	update, err := s.snapshot(ctx)
	if err != nil {
		s.log.Warn("leaderboard snapshot failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Slow subscriber: drop its stale update rather than block.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (s *LeaderboardService) snapshot(ctx context.Context) (LeaderboardUpdate, error) {
	scores, err := s.TopScores(ctx, MaxTopN)
	if err != nil {
		return LeaderboardUpdate{}, err
	}
	return LeaderboardUpdate{Scores: scores, UpdatedAt: s.now()}, nil
}

func capN(n int) int {
	if n <= 0 || n > MaxTopN {
		return MaxTopN
	}
	return n
}

func ranked(rows []domain.LeaderboardRow) []domain.RankedEntry {
	entries := make([]domain.RankedEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, domain.RankedEntry{
			Rank:      i + 1,
			UserID:    row.UserID,
			Value:     row.Value,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return entries
}
