// Package cards implements the card arithmetic shared by both round types:
// card values, hand totals, the baccarat third-card tableau and winner
// determination. Everything here is pure; randomness comes from a Dealer.
package cards

import (
	"errors"
	"strconv"
	"strings"
)

// Card ranks. Ace is 1, numbered cards are their face, J/Q/K are 11-13.
const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13

	MinRank = Ace
	MaxRank = King
)

// Target bounds for interactive rounds.
const (
	MinTarget = 1
	MaxTarget = 9
)

// ErrInvalidSymbol is returned for a card symbol outside A,2-10,J,Q,K.
var ErrInvalidSymbol = errors.New("invalid card symbol")

// Symbols lists the 13 card symbols in rank order.
var Symbols = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Value returns the baccarat point value of a rank.
// Ace counts 1, tens and faces count 0, everything else its face.
func Value(rank int) int {
	switch {
	case rank == Ace:
		return 1
	case rank >= 10:
		return 0
	default:
		return rank
	}
}

// Total returns the hand total: the sum of card values modulo 10.
func Total(cards []int) int {
	sum := 0
	for _, c := range cards {
		sum += Value(c)
	}
	return sum % 10
}

// IsNatural reports whether a two-card hand totals 8 or 9.
func IsNatural(cards []int) bool {
	return Total(cards) >= 8
}

// Symbol renders a rank as its card symbol.
func Symbol(rank int) string {
	if rank < MinRank || rank > MaxRank {
		return "?"
	}
	return Symbols[rank-1]
}

// ParseSymbol converts a card symbol to its rank.
func ParseSymbol(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, sym := range Symbols {
		if sym == s {
			return i + 1, nil
		}
	}
	return 0, ErrInvalidSymbol
}

// ValidRank reports whether rank is one of the 13 card ranks.
func ValidRank(rank int) bool {
	return rank >= MinRank && rank <= MaxRank
}

// FormatHand renders cards as "A, 10, K".
func FormatHand(cards []int) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = Symbol(c)
	}
	return strings.Join(parts, ", ")
}

// FormatTotal renders a hand with its total, e.g. "A, 7 (Total: 8)".
func FormatTotal(cards []int) string {
	return FormatHand(cards) + " (Total: " + strconv.Itoa(Total(cards)) + ")"
}
