package app_test

import (
	"context"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func TestUserMetricsUnknownUser(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	m, err := e.metrics.UserMetrics(ctx, "ghost")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.CurrentDifficulty != 1 || m.TotalScore != 0 || m.Accuracy != 0 {
		t.Fatalf("expected zero-value summary, got %+v", m)
	}
	if len(m.DifficultyHistogram) != 10 {
		t.Fatalf("expected 10 histogram buckets, got %d", len(m.DifficultyHistogram))
	}
	if len(m.RecentPerformance) != 0 {
		t.Fatalf("expected empty recent sequence, got %+v", m.RecentPerformance)
	}
}

func TestUserMetricsProjection(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"), question(3, 2, "a"))

	version := 0
	submissions := []struct {
		qid    int64
		answer string
	}{
		{1, "a"},     // correct, difficulty 1
		{2, "wrong"}, // incorrect, difficulty 1
		{3, "a"},     // correct, difficulty 2
	}
	for i, sub := range submissions {
		out, err := e.answers.Process(ctx, domain.AnswerRequest{
			UserID: "u1", SessionID: "s", QuestionID: sub.qid, Answer: sub.answer,
			StateVersion: version, IdempotencyKey: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("process %d: %v", sub.qid, err)
		}
		version = out.StateVersion
		e.clock.Advance(time.Minute)
	}

	m, err := e.metrics.UserMetrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Accuracy != 0.67 {
		t.Fatalf("expected accuracy 0.67 (2/3 rounded), got %v", m.Accuracy)
	}
	if m.DifficultyHistogram[0].Count != 2 || m.DifficultyHistogram[1].Count != 1 {
		t.Fatalf("unexpected histogram: %+v", m.DifficultyHistogram[:3])
	}
	// Newest first.
	if len(m.RecentPerformance) != 3 || !m.RecentPerformance[0].Correct || m.RecentPerformance[1].Correct {
		t.Fatalf("unexpected recent sequence: %+v", m.RecentPerformance)
	}
	if m.TotalScore != 300 { // 100 + 0 + 200
		t.Fatalf("expected total 300, got %d", m.TotalScore)
	}
}

func TestUserMetricsWindowExcludesOldAnswers(t *testing.T) {
	ctx := context.Background()
	e := newEngine(question(1, 1, "a"), question(2, 1, "a"))

	out, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s", QuestionID: 1, Answer: "a",
		StateVersion: 0, IdempotencyKey: "old",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// Push the first answer outside the 10-day window, then answer again.
	e.clock.Advance(11 * 24 * time.Hour)
	if _, err := e.answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s", QuestionID: 2, Answer: "wrong",
		StateVersion: out.StateVersion, IdempotencyKey: "new",
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	m, err := e.metrics.UserMetrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Accuracy != 0 {
		t.Fatalf("expected accuracy 0 over the recent window, got %v", m.Accuracy)
	}
	if len(m.RecentPerformance) != 1 {
		t.Fatalf("expected only the recent answer, got %+v", m.RecentPerformance)
	}
}
