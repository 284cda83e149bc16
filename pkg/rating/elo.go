package rating

import "math"

// DefaultKFactor is used when a game type configures none.
const DefaultKFactor = 32.0

// Expected is the expected score of a player rated self against opp.
func Expected(self, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-self)/400))
}

// Delta is the rating change for an actual score of 1 (win), 0.5 (draw) or 0 (loss).
func Delta(self, opp, actual, k float64) float64 {
	if k <= 0 {
		k = DefaultKFactor
	}
	return k * (actual - Expected(self, opp))
}
