package app_test

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
	"go.uber.org/zap"
)

// fakeClock makes streak decay and log windows deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// engine bundles a fully wired in-memory stack for service tests.
type engine struct {
	store       *memory.Store
	tracker     *memory.SessionTracker
	states      *app.StateManager
	answers     *app.AnswerService
	questions   *app.QuestionService
	leaderboard *app.LeaderboardService
	metrics     *app.MetricsService
	clock       *fakeClock
}

func newEngine(questions ...domain.Question) *engine {
	clock := newFakeClock()
	logger := zap.NewNop()

	store := memory.NewStore()
	store.SeedQuestions(questions)

	stateCache := memory.NewStateCache(time.Hour)
	responses := memory.NewResponseCache(time.Hour)
	tracker := memory.NewSessionTracker(time.Hour)
	bank := memory.NewCachedQuestionBank(store, time.Minute)

	states := app.NewStateManager(store, stateCache, 24*time.Hour, logger).WithClock(clock.Now)
	answers := app.NewAnswerService(states, bank, store, store, responses, 2, logger)
	questionSvc := app.NewQuestionService(bank, tracker, states, logger).WithRand(rand.New(rand.NewSource(1)))
	leaderboard := app.NewLeaderboardService(store, logger)
	answers.SetNotifier(leaderboard)
	metrics := app.NewMetricsService(states, store).WithClock(clock.Now)

	return &engine{
		store:       store,
		tracker:     tracker,
		states:      states,
		answers:     answers,
		questions:   questionSvc,
		leaderboard: leaderboard,
		metrics:     metrics,
		clock:       clock,
	}
}

func question(id int64, difficulty int, answer string) domain.Question {
	return domain.Question{
		ID:                id,
		Difficulty:        difficulty,
		Prompt:            fmt.Sprintf("question %d", id),
		Choices:           []string{"first", "second", "third"},
		CorrectAnswerHash: domain.HashAnswer(answer),
	}
}
