package app

import "math"

// Score calculation: basePoints(difficulty) * streakMultiplier(streak),
// with the multiplier capped so streaks beyond 20 earn no further bonus.
const (
	basePointsPerLevel      = 100
	streakMultiplierPerStep = 0.1
	streakMultiplierCap     = 3.0
)

// BasePoints is the unmultiplied award for a correct answer at the given
// difficulty.
func BasePoints(difficulty int) int {
	if difficulty < 1 {
		difficulty = 1
	}
	return basePointsPerLevel * difficulty
}

// StreakMultiplier grows 0.1 per consecutive correct answer, capped at 3.
func StreakMultiplier(streak int) float64 {
	mult := 1 + float64(streak)*streakMultiplierPerStep
	return math.Min(mult, streakMultiplierCap)
}

// ScoreDelta computes the points awarded for one answer. Incorrect
// answers always score zero. The streak argument is the streak before
// the answer was applied.
func ScoreDelta(difficulty, streak int, correct bool) int {
	if !correct {
		return 0
	}
	return int(math.Round(float64(BasePoints(difficulty)) * StreakMultiplier(streak)))
}
