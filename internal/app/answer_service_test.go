package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func TestProcessFirstCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "paris"))

	outcome, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID:         "u1",
		SessionID:      "s1",
		QuestionID:     1,
		Answer:         "  Paris ", // normalization: trim + case-fold
		StateVersion:   0,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !outcome.Correct {
		t.Fatalf("expected correct answer")
	}
	if outcome.ScoreDelta != 100 || outcome.TotalScore != 100 {
		t.Fatalf("expected 100 points at difficulty 1, got delta=%d total=%d", outcome.ScoreDelta, outcome.TotalScore)
	}
	if outcome.NewStreak != 1 {
		t.Fatalf("expected streak 1, got %d", outcome.NewStreak)
	}
	// Streak 0 before the answer is below the increase threshold.
	if outcome.NewDifficulty != 1 {
		t.Fatalf("expected difficulty to stay at 1, got %d", outcome.NewDifficulty)
	}
	if outcome.StateVersion != 1 {
		t.Fatalf("expected state version 1, got %d", outcome.StateVersion)
	}
	if outcome.LeaderboardRankScore != 1 || outcome.LeaderboardRankStreak != 1 {
		t.Fatalf("expected rank 1 on both boards, got %d/%d", outcome.LeaderboardRankScore, outcome.LeaderboardRankStreak)
	}
}

func TestProcessIncorrectAnswerResetsStreak(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 3, "yes"), question(2, 3, "yes"), question(3, 3, "yes"))

	version := 0
	for i, id := range []int64{1, 2} {
		outcome, err := e.answers.Process(ctx, domain.AnswerRequest{
			UserID: "u1", SessionID: "s1", QuestionID: id, Answer: "yes",
			StateVersion: version, IdempotencyKey: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("process %d: %v", id, err)
		}
		version = outcome.StateVersion
	}

	outcome, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 3, Answer: "wrong",
		StateVersion: version, IdempotencyKey: "miss",
	})
	if err != nil {
		t.Fatalf("process miss: %v", err)
	}
	if outcome.Correct || outcome.ScoreDelta != 0 {
		t.Fatalf("expected zero delta on incorrect answer, got %+v", outcome)
	}
	if outcome.NewStreak != 0 {
		t.Fatalf("expected streak reset, got %d", outcome.NewStreak)
	}
	// Max streak survives the miss.
	state, found, err := e.states.Get(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("get state: found=%v err=%v", found, err)
	}
	if state.MaxStreak != 2 {
		t.Fatalf("expected max streak 2, got %d", state.MaxStreak)
	}
	if state.MaxStreak < state.Streak {
		t.Fatalf("invariant maxStreak >= streak violated: %+v", state)
	}
}

func TestProcessDifficultyStepsUpAtThreshold(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"), question(3, 1, "a"))

	version := 0
	var last domain.AnswerOutcome
	for i, id := range []int64{1, 2, 3} {
		outcome, err := e.answers.Process(ctx, domain.AnswerRequest{
			UserID: "u1", SessionID: "s1", QuestionID: id, Answer: "a",
			StateVersion: version, IdempotencyKey: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("process %d: %v", id, err)
		}
		version = outcome.StateVersion
		last = outcome
	}
	// Third answer has streakBefore=2 >= threshold: difficulty 1 -> 2.
	if last.NewDifficulty != 2 {
		t.Fatalf("expected difficulty 2 after threshold streak, got %d", last.NewDifficulty)
	}
}

func TestProcessIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"))

	req := domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 1, Answer: "a",
		StateVersion: 0, IdempotencyKey: "retry-key",
	}
	first, err := e.answers.Process(ctx, req)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	second, err := e.answers.Process(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first != second {
		t.Fatalf("replay differs: %+v vs %+v", first, second)
	}
	if n := e.store.AnswerLogSize(); n != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", n)
	}
	state, _, _ := e.states.Get(ctx, "u1")
	if state.StateVersion != 1 {
		t.Fatalf("expected exactly one state transition, version=%d", state.StateVersion)
	}
}

func TestProcessStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"))

	if _, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 1, Answer: "a",
		StateVersion: 0, IdempotencyKey: "k1",
	}); err != nil {
		t.Fatalf("first process: %v", err)
	}

	_, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 2, Answer: "a",
		StateVersion: 0, IdempotencyKey: "k2",
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	// No state mutated by the conflicting submission.
	state, _, _ := e.states.Get(ctx, "u1")
	if state.StateVersion != 1 || state.TotalScore != 100 {
		t.Fatalf("conflicting submission mutated state: %+v", state)
	}
	if n := e.store.AnswerLogSize(); n != 1 {
		t.Fatalf("expected one audit entry, got %d", n)
	}
}

func TestProcessConcurrentSameVersion(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"))

	results := make(chan error, 2)
	for i, id := range []int64{1, 2} {
		req := domain.AnswerRequest{
			UserID: "u1", SessionID: "s1", QuestionID: id, Answer: "a",
			StateVersion: 0, IdempotencyKey: string(rune('a' + i)),
		}
		go func() {
			_, err := e.answers.Process(ctx, req)
			results <- err
		}()
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got successes=%d conflicts=%d", successes, conflicts)
	}

	state, _, _ := e.states.Get(ctx, "u1")
	if state.StateVersion != 1 {
		t.Fatalf("expected exactly one transition, version=%d", state.StateVersion)
	}
	if n := e.store.AnswerLogSize(); n != 1 {
		t.Fatalf("expected one audit entry, got %d", n)
	}
}

func TestProcessUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"))

	_, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 99, Answer: "a",
		StateVersion: 0, IdempotencyKey: "k",
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestStreakDecayOnRead(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"))

	out, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: 1, Answer: "a",
		StateVersion: 0, IdempotencyKey: "k1",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.NewStreak != 1 {
		t.Fatalf("expected streak 1, got %d", out.NewStreak)
	}

	e.clock.Advance(25 * time.Hour)

	state, found, err := e.states.Get(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("get state: found=%v err=%v", found, err)
	}
	if state.Streak != 0 {
		t.Fatalf("expected decayed streak 0, got %d", state.Streak)
	}
	// Decay is persisted, not just a read-time view.
	raw, err := e.store.GetUserState(ctx, "u1")
	if err != nil {
		t.Fatalf("store read: %v", err)
	}
	if raw.Streak != 0 {
		t.Fatalf("expected persisted streak reset, got %d", raw.Streak)
	}
	if state.MaxStreak != 1 {
		t.Fatalf("decay must not touch max streak, got %d", state.MaxStreak)
	}
}
