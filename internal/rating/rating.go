// Package rating implements the ELO-style preference update used to compare a
// name, or a group of chosen names, against the opposing group of a round.
//
// Everything here is pure: no state, no I/O.
//
// Rounding rules:
//   - updated ratings are rounded half to even (1212.5 -> 1212, 1213.5 -> 1214)
//     and then clamped to the calculator's floor
//   - averages are truncated toward zero
package rating

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	DefaultK       = 50
	DefaultFloor   = 100
	DefaultInitial = 1200
)

// Calculator applies ELO updates with a fixed K-factor and a rating floor.
type Calculator struct {
	K     int
	Floor int
}

// Default returns a Calculator with K=50 and a floor of 100.
func Default() Calculator {
	return Calculator{K: DefaultK, Floor: DefaultFloor}
}

// WinProbability returns the expected score of a against b:
// 1 / (1 + 10^((b-a)/400)).
// WinProbability(a, b) + WinProbability(b, a) == 1.
func WinProbability(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// UpdateRatings returns the new ratings after winner beats loser.
func (c Calculator) UpdateRatings(winner, loser int) (int, int) {
	return c.adjust(winner, 1, WinProbability(winner, loser)),
		c.adjust(loser, 0, WinProbability(loser, winner))
}

// UpdateGroupRating compares individual against the average of opposing and
// returns only the individual's new rating. opposing must not be empty.
func (c Calculator) UpdateGroupRating(individual int, opposing []int, isWinner bool) int {
	group := AverageRating(opposing)
	if isWinner {
		w, _ := c.UpdateRatings(individual, group)
		return w
	}
	_, l := c.UpdateRatings(group, individual)
	return l
}

// Clamp raises r to the floor if it is below it.
func (c Calculator) Clamp(r int) int {
	if r < c.Floor {
		return c.Floor
	}
	return r
}

func (c Calculator) adjust(old int, actual, expected float64) int {
	delta := decimal.NewFromFloat(float64(c.K) * (actual - expected))
	next := decimal.NewFromInt(int64(old)).Add(delta).RoundBank(0)
	return c.Clamp(int(next.IntPart()))
}

// AverageRating returns the arithmetic mean of ratings truncated toward zero.
// It panics on an empty slice: a comparison without an opposing group is a bug in the caller.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		panic("rating: AverageRating called with no ratings")
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return int(sum / int64(len(ratings)))
}

// GroupRating is the single opponent rating of a round:
// (avg(winners) + avg(losers)) / 2, truncated. When one side is empty the
// other side's average is used. Panics if both are empty.
func GroupRating(winners, losers []int) int {
	switch {
	case len(winners) == 0:
		return AverageRating(losers)
	case len(losers) == 0:
		return AverageRating(winners)
	}
	return (AverageRating(winners) + AverageRating(losers)) / 2
}
