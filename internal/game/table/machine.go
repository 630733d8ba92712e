// Package table implements the per-chat game session state machine.
//
// A Machine validates and applies one operation at a time to an in-memory
// *model.Session. It performs no I/O: callers load the session, run an
// operation under the chat lock and persist the result.
package table

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// DefaultMaxBet caps the stake a creator may set.
var DefaultMaxBet = decimal.NewFromInt(100)

// RoundRefLen is how many characters of the round id buttons carry.
const RoundRefLen = 8

// Policy holds the tunable limits of the machine.
type Policy struct {
	MaxBet decimal.Decimal
}

// Result describes what an operation did beyond mutating the session.
type Result struct {
	// Filled is set when the last seat was taken and betting opened.
	Filled bool
	// SelectionStarted is set when every bet is in and card picks opened.
	SelectionStarted bool
	// ReadyToSettle is set when the round reached Playing.
	ReadyToSettle bool
}

// Machine applies session operations.
type Machine struct {
	policy Policy
	dealer cards.Dealer
	now    func() time.Time
	newID  func() string
}

// Option customises a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides round id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) { m.newID = gen }
}

// NewMachine creates a Machine drawing cards from dealer.
func NewMachine(policy Policy, dealer cards.Dealer, opts ...Option) *Machine {
	if policy.MaxBet.IsZero() {
		policy.MaxBet = DefaultMaxBet
	}
	m := &Machine{
		policy: policy,
		dealer: dealer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the machine's limits.
func (m *Machine) Policy() Policy {
	return m.policy
}

// transitions lists the legal forward moves. SettingBet returns to Waiting
// once the stake is fixed; every other edge moves forward.
var transitions = map[model.Status][]model.Status{
	model.StatusWaiting:       {model.StatusSettingBet, model.StatusBetting},
	model.StatusSettingBet:    {model.StatusWaiting},
	model.StatusBetting:       {model.StatusCardSelection, model.StatusPlaying},
	model.StatusCardSelection: {model.StatusPlaying},
	model.StatusPlaying:       {model.StatusSettled},
}

func (m *Machine) move(s *model.Session, to model.Status) error {
	for _, next := range transitions[s.Status] {
		if next == to {
			s.Status = to
			s.UpdatedAt = m.now()
			return nil
		}
	}
	return ErrIllegalTransition
}

// NewSession creates a Waiting session for chatID.
// A creatorID of 0 leaves the session unclaimed; the first user to
// configure it becomes its creator.
func (m *Machine) NewSession(chatID, creatorID int64) *model.Session {
	now := m.now()
	return &model.Session{
		ChatID:      chatID,
		RoundID:     m.newID(),
		CreatorID:   creatorID,
		Status:      model.StatusWaiting,
		BetAmount:   decimal.Zero,
		Players:     []int64{},
		Bets:        map[int64]model.Bet{},
		CardChoices: map[int64]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start opens a session unless the chat already has a live one.
// A Waiting session is returned together with ErrSessionOpen so the caller
// can re-show it.
func (m *Machine) Start(existing *model.Session, chatID, creatorID int64) (*model.Session, error) {
	if existing != nil {
		switch existing.Status {
		case model.StatusSettled:
		case model.StatusWaiting:
			return existing, ErrSessionOpen
		default:
			return nil, ErrAlreadyRunning
		}
	}
	return m.NewSession(chatID, creatorID), nil
}

// claim checks userID may configure s, claiming an unowned session.
func claim(s *model.Session, userID int64) error {
	if s.CreatorID == 0 {
		s.CreatorID = userID
		return nil
	}
	if s.CreatorID != userID {
		return ErrNotCreator
	}
	return nil
}

// configurable checks s is still in its pre-join setup phase.
func configurable(s *model.Session) error {
	if s.Status != model.StatusWaiting {
		return wrongPhase(model.StatusWaiting, s.Status)
	}
	if s.BetSet || len(s.Players) > 0 {
		return ErrAlreadyConfigured
	}
	return nil
}

// ChooseMode sets the round type.
func (m *Machine) ChooseMode(s *model.Session, userID int64, mode model.Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if err := configurable(s); err != nil {
		return err
	}
	if err := claim(s, userID); err != nil {
		return err
	}
	s.Mode = mode
	s.UpdatedAt = m.now()
	return nil
}

// BeginSetBet asks the creator for a stake.
func (m *Machine) BeginSetBet(s *model.Session, userID int64) error {
	if err := configurable(s); err != nil {
		return err
	}
	if s.Mode == "" {
		return ErrModeRequired
	}
	if err := claim(s, userID); err != nil {
		return err
	}
	return m.move(s, model.StatusSettingBet)
}

// ParseAmount validates a stake typed by the creator.
func (m *Machine) ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(strings.ToUpper(text), "ETH")
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() || amount.GreaterThan(m.policy.MaxBet) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// SetBet fixes the stake from the creator's text and reopens the session.
// Invalid input leaves the session waiting for another amount.
func (m *Machine) SetBet(s *model.Session, userID int64, text string) error {
	if s.Status != model.StatusSettingBet {
		return wrongPhase(model.StatusSettingBet, s.Status)
	}
	if s.CreatorID != userID {
		return ErrNotCreator
	}
	amount, err := m.ParseAmount(text)
	if err != nil {
		return err
	}
	s.BetAmount = amount
	s.BetSet = true
	return m.move(s, model.StatusWaiting)
}

// FreePlay fixes a zero stake.
func (m *Machine) FreePlay(s *model.Session, userID int64) error {
	if err := configurable(s); err != nil {
		return err
	}
	if s.Mode == "" {
		return ErrModeRequired
	}
	if err := claim(s, userID); err != nil {
		return err
	}
	s.BetAmount = decimal.Zero
	s.BetSet = true
	s.UpdatedAt = m.now()
	return nil
}

// EnableTestMode shrinks capacity to two. Callers restrict it to owners.
func (m *Machine) EnableTestMode(s *model.Session) error {
	if s.Status != model.StatusWaiting {
		return wrongPhase(model.StatusWaiting, s.Status)
	}
	if len(s.Players) > 0 {
		return ErrAlreadyConfigured
	}
	s.TestMode = true
	s.UpdatedAt = m.now()
	return nil
}

// Join seats userID. Taking the last seat opens betting.
func (m *Machine) Join(s *model.Session, userID int64, hasWallet bool) (Result, error) {
	if s.HasPlayer(userID) {
		return Result{}, ErrAlreadyJoined
	}
	if s.Status != model.StatusWaiting || !s.BetSet {
		return Result{}, ErrNotAcceptingPlayers
	}
	if len(s.Players) >= s.Capacity() {
		return Result{}, ErrSessionFull
	}
	if !s.IsFree() && !hasWallet {
		return Result{}, ErrWalletRequired
	}

	s.Players = append(s.Players, userID)
	s.UpdatedAt = m.now()

	if len(s.Players) < s.Capacity() {
		return Result{}, nil
	}
	if err := m.move(s, model.StatusBetting); err != nil {
		return Result{}, err
	}
	return Result{Filled: true}, nil
}

// validChoice reports whether choice fits the session's mode.
func validChoice(mode model.Mode, choice model.Choice) bool {
	if mode == model.ModeInteractive {
		return choice == model.ChoiceConfirm
	}
	switch choice {
	case model.ChoicePlayer, model.ChoiceBanker, model.ChoiceTie:
		return true
	}
	return false
}

// PlaceBet records userID's wager. The last bet either opens card selection
// (interactive) or deals the coup (simple).
func (m *Machine) PlaceBet(s *model.Session, userID int64, choice model.Choice) (Result, error) {
	if s.Status != model.StatusBetting {
		return Result{}, wrongPhase(model.StatusBetting, s.Status)
	}
	if !s.HasPlayer(userID) {
		return Result{}, ErrUnknownPlayer
	}
	if _, ok := s.Bets[userID]; ok {
		return Result{}, ErrDuplicateBet
	}
	if !validChoice(s.Mode, choice) {
		return Result{}, ErrInvalidChoice
	}

	if s.Bets == nil {
		s.Bets = map[int64]model.Bet{}
	}
	s.Bets[userID] = model.Bet{Choice: choice, Amount: s.BetAmount}
	s.UpdatedAt = m.now()

	if len(s.Bets) < len(s.Players) {
		return Result{}, nil
	}

	if s.Mode == model.ModeInteractive {
		s.TargetNumber = m.dealer.Target()
		if err := m.move(s, model.StatusCardSelection); err != nil {
			return Result{}, err
		}
		return Result{SelectionStarted: true}, nil
	}

	player, banker := cards.DealInitial(m.dealer)
	player, banker, pd, bd := cards.ApplyThirdCardRule(player, banker, m.dealer)
	s.Hand = &model.Hand{PlayerCards: player, BankerCards: banker, PlayerDrew: pd, BankerDrew: bd}
	if err := m.move(s, model.StatusPlaying); err != nil {
		return Result{}, err
	}
	return Result{ReadyToSettle: true}, nil
}

// ChooseCard records userID's pick. The last pick moves the round to Playing.
func (m *Machine) ChooseCard(s *model.Session, userID int64, symbol string) (Result, error) {
	if s.Status != model.StatusCardSelection {
		return Result{}, wrongPhase(model.StatusCardSelection, s.Status)
	}
	if !s.HasPlayer(userID) {
		return Result{}, ErrUnknownPlayer
	}
	if _, ok := s.CardChoices[userID]; ok {
		return Result{}, ErrDuplicateChoice
	}
	rank, err := cards.ParseSymbol(symbol)
	if err != nil {
		return Result{}, ErrInvalidCard
	}

	if s.CardChoices == nil {
		s.CardChoices = map[int64]int{}
	}
	s.CardChoices[userID] = rank
	s.UpdatedAt = m.now()

	if len(s.CardChoices) < len(s.Players) {
		return Result{}, nil
	}
	if err := m.move(s, model.StatusPlaying); err != nil {
		return Result{}, err
	}
	return Result{ReadyToSettle: true}, nil
}

// MarkSettled closes a Playing round.
func (m *Machine) MarkSettled(s *model.Session) error {
	if s.Status != model.StatusPlaying {
		return wrongPhase(model.StatusPlaying, s.Status)
	}
	return m.move(s, model.StatusSettled)
}

// Cancel checks requesterID may abandon s. The caller deletes the session.
func (m *Machine) Cancel(s *model.Session, requesterID int64) error {
	if s.Status == model.StatusSettled {
		return wrongPhase(model.StatusWaiting, s.Status)
	}
	if s.CreatorID != requesterID {
		return ErrNotCreator
	}
	return nil
}

// SelectionExpired reports whether a selection timer armed for roundID
// should still delete s.
func SelectionExpired(s *model.Session, roundID string) bool {
	return s != nil && s.Status == model.StatusCardSelection && s.RoundID == roundID
}

// RoundRef is the short round reference carried in button data.
func RoundRef(s *model.Session) string {
	id := strings.ReplaceAll(s.RoundID, "-", "")
	if len(id) > RoundRefLen {
		id = id[:RoundRefLen]
	}
	return id
}

// CheckRound rejects a button pressed for an earlier round.
// An empty ref is accepted for buttons that are not round-bound.
func CheckRound(s *model.Session, ref string) error {
	if ref == "" || ref == RoundRef(s) {
		return nil
	}
	return ErrStaleRound
}
