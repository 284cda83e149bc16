package rating

import (
	"math"
	"testing"
)

func TestExpected(t *testing.T) {
	if got := Expected(1000, 1000); got != 0.5 {
		t.Errorf("Expected(equal) = %v, expected 0.5", got)
	}
	if got := Expected(1400, 1000); math.Abs(got-0.909) > 0.001 {
		t.Errorf("Expected(+400) = %v, expected ~0.909", got)
	}
	if sum := Expected(1200, 1000) + Expected(1000, 1200); math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected scores should sum to 1, got %v", sum)
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name      string
		self, opp float64
		actual    float64
		k         float64
		want      float64
	}{
		{name: "even win", self: 1000, opp: 1000, actual: 1, k: 32, want: 16},
		{name: "even loss", self: 1000, opp: 1000, actual: 0, k: 32, want: -16},
		{name: "even draw", self: 1000, opp: 1000, actual: 0.5, k: 32, want: 0},
		{name: "default k", self: 1000, opp: 1000, actual: 1, k: 0, want: 16},
		{name: "custom k", self: 1000, opp: 1000, actual: 1, k: 24, want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delta(tt.self, tt.opp, tt.actual, tt.k); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Delta() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestDelta_DecisiveSigns(t *testing.T) {
	for _, pair := range [][2]float64{{1000, 1000}, {1500, 900}, {900, 1500}} {
		winner, loser := pair[0], pair[1]
		if d := Delta(winner, loser, 1, 32); d <= 0 {
			t.Errorf("winner delta %v should be positive for %v vs %v", d, winner, loser)
		}
		if d := Delta(loser, winner, 0, 32); d >= 0 {
			t.Errorf("loser delta %v should be negative for %v vs %v", d, loser, winner)
		}
	}
}
