// Package settlement turns a finished round into payouts.
//
// Compute is pure: it derives winners and the list of ledger instructions
// from a session snapshot. Engine executes those instructions against the
// ledger one recipient at a time and reports the result to the chat.
package settlement

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// Payout multipliers for simple mode, stake included.
var (
	PlayerMultiplier = decimal.NewFromInt(2)
	BankerMultiplier = decimal.RequireFromString("1.95")
	TieMultiplier    = decimal.NewFromInt(9)
)

// weiPrecision caps payout amounts so they convert to whole wei.
const weiPrecision = 18

var (
	ErrNotFinished = errors.New("round is not finished")
	ErrNoHand      = errors.New("simple round has no dealt hand")
)

var hundred = decimal.NewFromInt(100)

// Instruction is one ledger transfer owed to a player.
type Instruction struct {
	UserID int64
	Amount decimal.Decimal
	Kind   string // model.TxKindPayout or model.TxKindRefund
}

// Outcome is the computed result of a round.
type Outcome struct {
	Mode     model.Mode
	Baccarat cards.Outcome  // simple mode only
	Target   int            // interactive mode only
	Totals   map[int64]int  // interactive mode only
	Winners  []int64
	Refunded bool // interactive round with no winner

	Pool      decimal.Decimal
	Fee       decimal.Decimal
	PrizeEach decimal.Decimal

	Instructions []Instruction
}

// TotalPaid sums every instruction amount.
func (o *Outcome) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, in := range o.Instructions {
		total = total.Add(in.Amount)
	}
	return total
}

// IsWinner reports whether userID is among the winners.
func (o *Outcome) IsWinner(userID int64) bool {
	for _, id := range o.Winners {
		if id == userID {
			return true
		}
	}
	return false
}

// Compute derives the outcome of a Playing or Settled session.
// feePercent is the house cut of an interactive pool, e.g. 5.
func Compute(s *model.Session, feePercent decimal.Decimal) (*Outcome, error) {
	if s.Status != model.StatusPlaying && s.Status != model.StatusSettled {
		return nil, ErrNotFinished
	}
	if s.Mode == model.ModeInteractive {
		return computeInteractive(s, feePercent), nil
	}
	if s.Hand == nil {
		return nil, ErrNoHand
	}
	return computeSimple(s), nil
}

// bettorsInSeatOrder returns the players with a recorded bet, in join order.
func bettorsInSeatOrder(s *model.Session) []int64 {
	ids := make([]int64, 0, len(s.Bets))
	for _, id := range s.Players {
		if _, ok := s.Bets[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func multiplier(c model.Choice) decimal.Decimal {
	switch c {
	case model.ChoicePlayer:
		return PlayerMultiplier
	case model.ChoiceBanker:
		return BankerMultiplier
	case model.ChoiceTie:
		return TieMultiplier
	}
	return decimal.Zero
}

// computeSimple pays bettors on the winning side. Losing bets, including
// Player and Banker bets on a tie, are retained by the house.
func computeSimple(s *model.Session) *Outcome {
	result := cards.BaccaratWinner(s.Hand.PlayerCards, s.Hand.BankerCards)
	o := &Outcome{Mode: s.Mode, Baccarat: result}

	for _, id := range bettorsInSeatOrder(s) {
		bet := s.Bets[id]
		o.Pool = o.Pool.Add(bet.Amount)
		if string(bet.Choice) != string(result) {
			continue
		}
		o.Winners = append(o.Winners, id)
		if bet.Amount.IsZero() {
			continue
		}
		o.Instructions = append(o.Instructions, Instruction{
			UserID: id,
			Amount: bet.Amount.Mul(multiplier(bet.Choice)).Truncate(weiPrecision),
			Kind:   model.TxKindPayout,
		})
	}
	return o
}

// computeInteractive splits the pool minus the house fee between the picks
// closest to the target. With no winner every bettor gets the stake back
// minus the fee.
func computeInteractive(s *model.Session, feePercent decimal.Decimal) *Outcome {
	choices := make(map[int64]int, len(s.CardChoices))
	for id, rank := range s.CardChoices {
		if _, ok := s.Bets[id]; ok {
			choices[id] = rank
		}
	}
	winners, totals := cards.PvPWinners(choices, s.TargetNumber)

	bettors := bettorsInSeatOrder(s)
	o := &Outcome{
		Mode:    s.Mode,
		Target:  s.TargetNumber,
		Totals:  totals,
		Winners: winners,
		Pool:    s.BetAmount.Mul(decimal.NewFromInt(int64(len(bettors)))),
	}
	o.Fee = o.Pool.Mul(feePercent).Div(hundred)

	if s.BetAmount.IsZero() || len(bettors) == 0 {
		return o
	}

	if len(winners) == 0 {
		o.Refunded = true
		refund := s.BetAmount.Sub(s.BetAmount.Mul(feePercent).Div(hundred)).Truncate(weiPrecision)
		for _, id := range bettors {
			o.Instructions = append(o.Instructions, Instruction{UserID: id, Amount: refund, Kind: model.TxKindRefund})
		}
		return o
	}

	prize := o.Pool.Sub(o.Fee)
	o.PrizeEach, _ = prize.QuoRem(decimal.NewFromInt(int64(len(winners))), weiPrecision)

	for _, id := range winners {
		o.Instructions = append(o.Instructions, Instruction{UserID: id, Amount: o.PrizeEach, Kind: model.TxKindPayout})
	}
	return o
}
