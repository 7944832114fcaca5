package game

import (
	"math"
	"time"
)

// ScoreRules describes how a correct answer is rewarded.
type ScoreRules struct {
	Base     int
	MaxBonus int
	Budget   time.Duration
}

// DefaultScoreRules awards 10 points plus up to 10 for speed over a 15 second question.
func DefaultScoreRules() ScoreRules {
	return ScoreRules{Base: 10, MaxBonus: 10, Budget: 15 * time.Second}
}

// ClampTimeLeft bounds a client-reported remaining time into [0, budget] seconds.
func (r ScoreRules) ClampTimeLeft(timeLeft float64) float64 {
	budget := r.Budget.Seconds()
	if math.IsNaN(timeLeft) || timeLeft < 0 {
		return 0
	}
	if timeLeft > budget {
		return budget
	}
	return timeLeft
}

// Delta returns the points a submission earns. Wrong answers earn nothing.
func (r ScoreRules) Delta(correct bool, timeLeft float64) int {
	if !correct {
		return 0
	}
	budget := r.Budget.Seconds()
	if budget <= 0 {
		return r.Base
	}
	bonus := math.Round(r.ClampTimeLeft(timeLeft) / budget * float64(r.MaxBonus))
	return r.Base + int(bonus)
}
