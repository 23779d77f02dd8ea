package game

import "math"

const (
	basePoints     = 10
	speedBonus     = 2
	speedThreshold = 0.75 // fraction of the window left to earn the bonus
)

// ScoreAnswer computes the points for an answer. Wrong answers score zero.
// Correct answers earn a linear time bonus scaled by the remaining time, never
// less than one point, plus a flat speed bonus when the answer landed in the
// fastest quartile of the window.
func ScoreAnswer(correct bool, timeLeft, timePerQuestion int) int {
	if !correct || timePerQuestion <= 0 {
		return 0
	}
	if timeLeft < 0 {
		timeLeft = 0
	}
	points := int(math.Round(basePoints * float64(timeLeft) / float64(timePerQuestion)))
	if points < 1 {
		points = 1
	}
	if float64(timeLeft) >= speedThreshold*float64(timePerQuestion) {
		points += speedBonus
	}
	return points
}
