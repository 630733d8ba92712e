package cards

import "sort"

// PvPWinners scores interactive picks against the target.
// Each player's total is the value of the picked card. Every player at the
// minimal distance from target wins. When every total is zero nobody wins.
// Winners are returned sorted by user id.
func PvPWinners(choices map[int64]int, target int) ([]int64, map[int64]int) {
	totals := make(map[int64]int, len(choices))
	allZero := true
	for uid, rank := range choices {
		t := Value(rank) % 10
		totals[uid] = t
		if t != 0 {
			allZero = false
		}
	}
	if len(totals) == 0 || allZero {
		return nil, totals
	}

	best := -1
	for _, t := range totals {
		d := distance(t, target)
		if best < 0 || d < best {
			best = d
		}
	}

	winners := make([]int64, 0, len(totals))
	for uid, t := range totals {
		if distance(t, target) == best {
			winners = append(winners, uid)
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i] < winners[j] })
	return winners, totals
}

// Distance is how far total lies from target.
func Distance(total, target int) int {
	return distance(total, target)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
