package cards

// Outcome is the result of a baccarat coup.
type Outcome string

const (
	OutcomePlayer Outcome = "player"
	OutcomeBanker Outcome = "banker"
	OutcomeTie    Outcome = "tie"
)

// DealInitial deals two cards to each hand, alternating player and banker.
func DealInitial(d Dealer) (player, banker []int) {
	player = make([]int, 0, 3)
	banker = make([]int, 0, 3)
	player = append(player, d.Card())
	banker = append(banker, d.Card())
	player = append(player, d.Card())
	banker = append(banker, d.Card())
	return player, banker
}

// BankerDraws implements the banker column of the tableau when the player
// took a third card with value playerThird.
func BankerDraws(bankerTotal, playerThird int) bool {
	switch bankerTotal {
	case 0, 1, 2:
		return true
	case 3:
		return playerThird != 8
	case 4:
		return playerThird >= 2 && playerThird <= 7
	case 5:
		return playerThird >= 4 && playerThird <= 7
	case 6:
		return playerThird == 6 || playerThird == 7
	default:
		return false
	}
}

// ApplyThirdCardRule completes both hands per the standard tableau.
// Input slices are not modified; the returned slices may share no storage
// with them.
func ApplyThirdCardRule(player, banker []int, d Dealer) ([]int, []int, bool, bool) {
	p := append(make([]int, 0, 3), player...)
	b := append(make([]int, 0, 3), banker...)

	playerTotal := Total(p)
	bankerTotal := Total(b)

	// naturals stand
	if playerTotal >= 8 || bankerTotal >= 8 {
		return p, b, false, false
	}

	playerDrew := playerTotal <= 5
	if playerDrew {
		p = append(p, d.Card())
	}

	var bankerDrew bool
	if playerDrew {
		bankerDrew = BankerDraws(bankerTotal, Value(p[2]))
	} else {
		bankerDrew = bankerTotal <= 5
	}
	if bankerDrew {
		b = append(b, d.Card())
	}

	return p, b, playerDrew, bankerDrew
}

// BaccaratWinner compares hand totals.
func BaccaratWinner(player, banker []int) Outcome {
	pt, bt := Total(player), Total(banker)
	switch {
	case pt > bt:
		return OutcomePlayer
	case bt > pt:
		return OutcomeBanker
	default:
		return OutcomeTie
	}
}
