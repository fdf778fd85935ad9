// Package pvp_services implements the realtime coordination core: the Elo
// calculator, the matchmaking queue and the per-match coordinator.
package pvp_services

import "math"

// KFactor is the Elo volatility constant.
const KFactor = 32

// Match results fed to EloDelta.
const (
	ResultLoss = 0.0
	ResultDraw = 0.5
	ResultWin  = 1.0
)

// ExpectedScore returns the probability of the player beating the opponent
// under the Elo model: 1 / (1 + 10^((opponent-player)/400)).
func ExpectedScore(playerRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-playerRating)/400.0))
}

// EloDelta returns the signed rating change for the player given the match
// result. Deltas for the two sides of a match sum to zero modulo rounding.
// The floor at zero is applied where the delta is applied, not here.
func EloDelta(playerRating, opponentRating int, result float64) int {
	expected := ExpectedScore(playerRating, opponentRating)
	return int(math.Round(KFactor * (result - expected)))
}

// ApplyEloDelta returns the new rating, floored at zero.
func ApplyEloDelta(rating, delta int) int {
	if next := rating + delta; next > 0 {
		return next
	}
	return 0
}
