package app

import (
	"context"
	"math"
	"time"

	"adaptive-quiz-service/internal/domain"
)

const (
	metricsWindow   = 10 * 24 * time.Hour
	metricsMaxLogs  = 100
	recentSeqLength = 10
)

// MetricsService projects per-user performance summaries out of the
// answer log and current state. Read-only.
type MetricsService struct {
	states *StateManager
	logs   AnswerLogReader
	now    func() time.Time
}

func NewMetricsService(states *StateManager, logs AnswerLogReader) *MetricsService {
	return &MetricsService{states: states, logs: logs, now: time.Now}
}

// WithClock is test-only.
func (s *MetricsService) WithClock(now func() time.Time) *MetricsService {
	s.now = now
	return s
}

// UserMetrics summarizes recent accuracy, a per-difficulty attempt
// histogram, and the last-10 correctness sequence. Users who have never
// played get the zero-value summary rather than an error.
func (s *MetricsService) UserMetrics(ctx context.Context, userID string) (domain.UserMetrics, error) {
	state, found, err := s.states.Get(ctx, userID)
	if err != nil {
		return domain.UserMetrics{}, err
	}
	if !found {
		return domain.UserMetrics{
			CurrentDifficulty:   domain.MinDifficulty,
			DifficultyHistogram: emptyHistogram(),
			RecentPerformance:   []domain.RecentAnswer{},
		}, nil
	}

	since := s.now().Add(-metricsWindow)
	logs, err := s.logs.RecentAnswers(ctx, userID, since, metricsMaxLogs)
	if err != nil {
		return domain.UserMetrics{}, err
	}

	correct := 0
	histogram := emptyHistogram()
	for _, entry := range logs {
		if entry.Correct {
			correct++
		}
		if entry.Difficulty >= domain.MinDifficulty && entry.Difficulty <= domain.MaxDifficulty {
			histogram[entry.Difficulty-1].Count++
		}
	}

	accuracy := 0.0
	if len(logs) > 0 {
		accuracy = math.Round(float64(correct)/float64(len(logs))*100) / 100
	}

	recent := make([]domain.RecentAnswer, 0, recentSeqLength)
	for _, entry := range logs {
		if len(recent) == recentSeqLength {
			break
		}
		recent = append(recent, domain.RecentAnswer{Difficulty: entry.Difficulty, Correct: entry.Correct})
	}

	return domain.UserMetrics{
		CurrentDifficulty:   state.CurrentDifficulty,
		Streak:              state.Streak,
		MaxStreak:           state.MaxStreak,
		TotalScore:          state.TotalScore,
		Accuracy:            accuracy,
		DifficultyHistogram: histogram,
		RecentPerformance:   recent,
	}, nil
}

func emptyHistogram() []domain.DifficultyBucket {
	buckets := make([]domain.DifficultyBucket, domain.MaxDifficulty)
	for d := domain.MinDifficulty; d <= domain.MaxDifficulty; d++ {
		buckets[d-1] = domain.DifficultyBucket{Difficulty: d}
	}
	return buckets
}
