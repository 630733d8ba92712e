// Package model defines the data models for the baccarat bot.
package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects the round rules of a session.
type Mode string

const (
	ModeSimple      Mode = "simple"      // classic baccarat against the house
	ModeInteractive Mode = "interactive" // closest-to-target card pick between players
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSimple || m == ModeInteractive
}

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusSettingBet    Status = "setting_bet"
	StatusBetting       Status = "betting"
	StatusCardSelection Status = "card_selection"
	StatusPlaying       Status = "playing"
	StatusSettled       Status = "settled"
)

// rank orders statuses so transitions can be checked for monotonicity.
var statusRank = map[Status]int{
	StatusWaiting:       0,
	StatusSettingBet:    1,
	StatusBetting:       2,
	StatusCardSelection: 3,
	StatusPlaying:       4,
	StatusSettled:       5,
}

// Rank returns the position of s in the lifecycle, or -1 if unknown.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Choice is what a player backs in a round.
type Choice string

const (
	ChoicePlayer  Choice = "player"
	ChoiceBanker  Choice = "banker"
	ChoiceTie     Choice = "tie"
	ChoiceConfirm Choice = "none" // interactive mode: stake confirmed, no side chosen
)

// Bet is a single player's wager in a session.
type Bet struct {
	Choice Choice          `json:"choice"`
	Amount decimal.Decimal `json:"amount"`
}

// Hand holds the dealt cards of a simple-mode round.
type Hand struct {
	PlayerCards []int `json:"player_cards"`
	BankerCards []int `json:"banker_cards"`
	PlayerDrew  bool  `json:"player_drew"`
	BankerDrew  bool  `json:"banker_drew"`
}

// Session is the full state of one chat's game.
type Session struct {
	ChatID       int64           `db:"chat_id"`
	RoundID      string          `db:"round_id"`
	CreatorID    int64           `db:"creator_id"`
	MessageID    int             `db:"message_id"`
	Mode         Mode            `db:"mode"`
	Status       Status          `db:"status"`
	BetAmount    decimal.Decimal `db:"bet_amount"`
	BetSet       bool            `db:"bet_set"`
	TestMode     bool            `db:"test_mode"`
	Players      []int64         `db:"players"`
	Bets         map[int64]Bet   `db:"bets"`
	CardChoices  map[int64]int   `db:"card_choices"`
	TargetNumber int             `db:"target_number"`
	Hand         *Hand           `db:"hand"`
	Version      int64           `db:"version"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// IsFree reports whether the session is played without stakes.
func (s *Session) IsFree() bool {
	return s.BetAmount.IsZero()
}

// Capacity is the maximum number of players the session admits.
func (s *Session) Capacity() int {
	switch {
	case s.TestMode:
		return 2
	case s.Mode == ModeInteractive:
		return 4
	default:
		return 8
	}
}

// HasPlayer reports whether userID joined the session.
func (s *Session) HasPlayer(userID int64) bool {
	for _, id := range s.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so settlement can work on a snapshot.
func (s *Session) Clone() *Session {
	c := *s
	c.Players = append([]int64(nil), s.Players...)
	c.Bets = make(map[int64]Bet, len(s.Bets))
	for k, v := range s.Bets {
		c.Bets[k] = v
	}
	c.CardChoices = make(map[int64]int, len(s.CardChoices))
	for k, v := range s.CardChoices {
		c.CardChoices[k] = v
	}
	if s.Hand != nil {
		h := *s.Hand
		h.PlayerCards = append([]int(nil), s.Hand.PlayerCards...)
		h.BankerCards = append([]int(nil), s.Hand.BankerCards...)
		c.Hand = &h
	}
	return &c
}

// User is a chat user's profile as last observed.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// DisplayName returns the best available handle for the user.
func (u *User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return FallbackName(u.TelegramID)
	}
}

// FallbackName is used when nothing is known about a user.
func FallbackName(userID int64) string {
	return "User" + strconv.FormatInt(userID, 10)
}

// Wallet is a user's custodial address. Never mutated after creation.
type Wallet struct {
	UserID    int64     `db:"user_id"`
	Address   string    `db:"address"`
	Secret    string    `db:"secret"`
	CreatedAt time.Time `db:"created_at"`
}

// PendingDeposit is a stake recorded at bet time and moved on-chain at settlement.
type PendingDeposit struct {
	ID        int64           `db:"id"`
	RoundID   string          `db:"round_id"`
	ChatID    int64           `db:"chat_id"`
	UserID    int64           `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}

// LedgerTransaction records one ledger call made during settlement.
type LedgerTransaction struct {
	ID        int64           `db:"id"`
	RoundID   string          `db:"round_id"`
	ChatID    int64           `db:"chat_id"`
	UserID    int64           `db:"user_id"`
	Kind      string          `db:"kind"`
	Amount    decimal.Decimal `db:"amount"`
	TxHash    string          `db:"tx_hash"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
}

// Ledger transaction kinds.
const (
	TxKindDeposit = "deposit" // user stake moved into the contract
	TxKindPayout  = "payout"  // winnings paid by the house
	TxKindRefund  = "refund"  // no-winner refund
)

// Ledger transaction statuses.
const (
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
	TxStatusSkipped   = "skipped"
)

// Round is the history record of a settled session.
type Round struct {
	RoundID   string          `db:"round_id"`
	ChatID    int64           `db:"chat_id"`
	Mode      Mode            `db:"mode"`
	BetAmount decimal.Decimal `db:"bet_amount"`
	Outcome   string          `db:"outcome"`
	Winners   []int64         `db:"winners"`
	TotalPaid decimal.Decimal `db:"total_paid"`
	SettledAt time.Time       `db:"settled_at"`
}

// ChatStats aggregates round history for one chat.
type ChatStats struct {
	Rounds     int64           `db:"rounds"`
	PaidRounds int64           `db:"paid_rounds"`
	TotalPaid  decimal.Decimal `db:"total_paid"`
}
