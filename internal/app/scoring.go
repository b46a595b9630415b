package app

import "quizhub/internal/domain"

// scoreAnswer computes the points awarded for one submission. Wrong answers
// earn nothing under every system. The standard system pays full points for an
// instant correct answer, decaying linearly to a half-points floor at the
// deadline; simple pays a flat 1 per correct answer; no_points pays nothing.
// Scoring happens once, at submission time, and is never recomputed at reveal.
func scoreAnswer(system string, correct bool, points, elapsed, limit int) int {
	if !correct {
		return 0
	}
	switch system {
	case domain.PointsNone:
		return 0
	case domain.PointsSimple:
		return 1
	}

	if limit <= 0 {
		return points
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > limit {
		elapsed = limit
	}
	floor := points / 2
	bonus := (points - floor) * (limit - elapsed) / limit
	return floor + bonus
}
