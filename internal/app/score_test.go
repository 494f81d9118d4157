package app_test

import (
	"testing"

	"adaptive-quiz-service/internal/app"
)

func TestScoreDeltaIncorrectIsZero(t *testing.T) {
	for d := 1; d <= 10; d++ {
		for _, s := range []int{0, 1, 5, 30} {
			if got := app.ScoreDelta(d, s, false); got != 0 {
				t.Fatalf("ScoreDelta(%d, %d, false) = %d, want 0", d, s, got)
			}
		}
	}
}

func TestScoreDeltaScenarios(t *testing.T) {
	cases := []struct {
		difficulty int
		streak     int
		want       int
	}{
		{1, 0, 100},
		{5, 3, 650}, // 500 * 1.3
		{3, 7, 510}, // 300 * 1.7
		{10, 0, 1000},
		{2, 20, 600}, // cap reached exactly
		{2, 25, 600}, // beyond the cap, no further bonus
		{0, 0, 100},  // difficulty floor of 1
	}
	for _, tc := range cases {
		if got := app.ScoreDelta(tc.difficulty, tc.streak, true); got != tc.want {
			t.Fatalf("ScoreDelta(%d, %d, true) = %d, want %d", tc.difficulty, tc.streak, got, tc.want)
		}
	}
}

func TestScoreDeltaMonotonicInStreak(t *testing.T) {
	prev := 0
	for s := 0; s <= 40; s++ {
		got := app.ScoreDelta(4, s, true)
		if got < prev {
			t.Fatalf("ScoreDelta(4, %d, true) = %d decreased from %d", s, got, prev)
		}
		prev = got
	}
	if capVal := app.ScoreDelta(4, 20, true); app.ScoreDelta(4, 40, true) != capVal {
		t.Fatalf("expected constant score beyond the multiplier cap")
	}
}

func TestStreakMultiplierCap(t *testing.T) {
	if m := app.StreakMultiplier(0); m != 1.0 {
		t.Fatalf("StreakMultiplier(0) = %v, want 1.0", m)
	}
	if m := app.StreakMultiplier(100); m != 3.0 {
		t.Fatalf("StreakMultiplier(100) = %v, want 3.0", m)
	}
}
