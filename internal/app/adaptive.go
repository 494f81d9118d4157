package app

import "adaptive-quiz-service/internal/domain"

// NextDifficulty advances the difficulty state machine for one answer.
// A correct answer only steps difficulty up once the streak has reached
// minStreakToIncrease, so a single lucky answer never escalates; a wrong
// answer always steps down by exactly one. The result stays in [1,10].
func NextDifficulty(current int, correct bool, streak, minStreakToIncrease int) int {
	d := clampDifficulty(current)

	if correct {
		if streak >= minStreakToIncrease && d < domain.MaxDifficulty {
			return d + 1
		}
		return d
	}

	if d > domain.MinDifficulty {
		return d - 1
	}
	return domain.MinDifficulty
}

func clampDifficulty(d int) int {
	if d < domain.MinDifficulty {
		return domain.MinDifficulty
	}
	if d > domain.MaxDifficulty {
		return domain.MaxDifficulty
	}
	return d
}
