package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

// Wallets resolves custodial wallets.
type Wallets interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
}

// Deposits holds stakes recorded at bet time.
type Deposits interface {
	ListByRound(ctx context.Context, roundID string) ([]*model.PendingDeposit, error)
	DeleteByRound(ctx context.Context, roundID string) error
}

// Journal keeps the ledger transaction log and the round history.
type Journal interface {
	RecordTransaction(ctx context.Context, tx *model.LedgerTransaction) error
	RecordRound(ctx context.Context, round *model.Round) error
}

// Directory resolves display names for group messages.
type Directory interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Support returns the handle failure notices point users to.
type Support interface {
	SupportHandle(ctx context.Context) string
}

// Config holds settlement policy.
type Config struct {
	FeePercent     decimal.Decimal
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Dependencies wires the engine's collaborators.
type Dependencies struct {
	Ledger    ledger.Ledger
	Wallets   Wallets
	Deposits  Deposits
	Journal   Journal
	Directory Directory
	Support   Support
	Notifier  notify.Notifier
}

// Engine executes the ledger side of a finished round.
type Engine struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

// NewEngine creates a settlement engine.
func NewEngine(cfg Config, deps Dependencies) *Engine {
	return &Engine{cfg: cfg, deps: deps, now: time.Now}
}

// Report describes what Settle did.
type Report struct {
	Outcome   *Outcome
	Forfeited []int64 // bettors whose stake never reached the contract
	Paid      []int64
	Failed    []int64
	TotalPaid decimal.Decimal
}

// Settle collects stakes, computes the outcome, pays every recipient and
// announces the result. s must be a snapshot the caller no longer mutates;
// forfeited bettors are removed from it. Ledger failures are isolated per
// recipient and never returned.
func (e *Engine) Settle(ctx context.Context, s *model.Session) (*Report, error) {
	report := &Report{TotalPaid: decimal.Zero}
	support := e.deps.Support.SupportHandle(ctx)

	if !s.IsFree() {
		report.Forfeited = e.collectStakes(ctx, s, support)
	}

	outcome, err := Compute(s, e.cfg.FeePercent)
	if err != nil {
		return nil, fmt.Errorf("failed to compute outcome: %w", err)
	}
	report.Outcome = outcome

	names := e.names(ctx, s)
	e.announce(ctx, s, outcome, names)

	for _, in := range outcome.Instructions {
		if e.pay(ctx, s, in, support) {
			report.Paid = append(report.Paid, in.UserID)
			report.TotalPaid = report.TotalPaid.Add(in.Amount)
		} else {
			report.Failed = append(report.Failed, in.UserID)
		}
	}

	e.send(ctx, s.ChatID, summaryMessage(s, outcome, names))
	e.recordRound(ctx, s, outcome, report.TotalPaid)

	log.Info().
		Int64("chat_id", s.ChatID).
		Str("round_id", s.RoundID).
		Str("mode", string(s.Mode)).
		Int("winners", len(outcome.Winners)).
		Int("paid", len(report.Paid)).
		Int("failed", len(report.Failed)).
		Int("forfeited", len(report.Forfeited)).
		Str("total_paid", report.TotalPaid.String()).
		Msg("Round settled")

	return report, nil
}

// collectStakes moves every pending deposit for the round into the contract.
// A bettor whose deposit is missing or fails is removed from the round.
func (e *Engine) collectStakes(ctx context.Context, s *model.Session, support string) []int64 {
	pending, err := e.deps.Deposits.ListByRound(ctx, s.RoundID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Str("round_id", s.RoundID).Msg("Failed to load pending deposits")
	}
	byUser := make(map[int64]*model.PendingDeposit, len(pending))
	for _, d := range pending {
		byUser[d.UserID] = d
	}

	var forfeited []int64
	for _, id := range s.Players {
		bet, ok := s.Bets[id]
		if !ok || bet.Amount.IsZero() {
			continue
		}
		d, ok := byUser[id]
		if !ok || !e.deposit(ctx, s, id, d.Amount) {
			forfeited = append(forfeited, id)
			delete(s.Bets, id)
			delete(s.CardChoices, id)
			e.send(ctx, id, depositFailed(bet.Amount, support))
		}
	}

	if err := e.deps.Deposits.DeleteByRound(ctx, s.RoundID); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Str("round_id", s.RoundID).Msg("Failed to clear pending deposits")
	}
	return forfeited
}

func (e *Engine) deposit(ctx context.Context, s *model.Session, userID int64, amount decimal.Decimal) bool {
	logger := log.With().Int64("chat_id", s.ChatID).Int64("user_id", userID).Str("amount", amount.String()).Logger()

	w, err := e.deps.Wallets.GetByUserID(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("No wallet for pending deposit")
		return false
	}

	submitCtx, cancel := e.submitContext(ctx)
	txHash, err := e.deps.Ledger.Deposit(submitCtx, w.Secret, amount)
	cancel()
	if err == nil {
		err = ledger.WaitConfirmed(ctx, e.deps.Ledger, txHash, e.cfg.ConfirmTimeout, e.cfg.PollInterval)
	}
	e.journal(ctx, s, userID, model.TxKindDeposit, amount, txHash, err)
	if err != nil {
		logger.Warn().Err(err).Str("tx_hash", txHash).Msg("Deposit failed, bettor forfeited")
		return false
	}
	logger.Info().Str("tx_hash", txHash).Msg("Deposit confirmed")
	return true
}

// pay runs the payout protocol for one recipient.
func (e *Engine) pay(ctx context.Context, s *model.Session, in Instruction, support string) bool {
	logger := log.With().
		Int64("chat_id", s.ChatID).
		Int64("user_id", in.UserID).
		Str("kind", in.Kind).
		Str("amount", in.Amount.String()).
		Logger()

	w, err := e.deps.Wallets.GetByUserID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			logger.Warn().Msg("Payout skipped, wallet missing")
			e.send(ctx, in.UserID, walletMissing(support))
		} else {
			logger.Error().Err(err).Msg("Payout skipped, wallet lookup failed")
			e.send(ctx, in.UserID, houseShort(in.Amount, support))
		}
		e.journal(ctx, s, in.UserID, in.Kind, in.Amount, "", errSkipped)
		return false
	}

	// The ledger checks the house balance in the same step as the withdraw.
	submitCtx, cancel := e.submitContext(ctx)
	txHash, err := e.deps.Ledger.Withdraw(submitCtx, w.Address, in.Amount)
	cancel()
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		logger.Error().Err(err).Msg("Payout skipped, house balance too low")
		e.send(ctx, in.UserID, houseShort(in.Amount, support))
		e.journal(ctx, s, in.UserID, in.Kind, in.Amount, "", errSkipped)
		return false
	}
	if err == nil {
		err = ledger.WaitConfirmed(ctx, e.deps.Ledger, txHash, e.cfg.ConfirmTimeout, e.cfg.PollInterval)
	}
	e.journal(ctx, s, in.UserID, in.Kind, in.Amount, txHash, err)
	if err != nil {
		logger.Error().Err(err).Str("tx_hash", txHash).Msg("Payout failed")
		e.send(ctx, in.UserID, payoutFailed(in, support))
		return false
	}

	logger.Info().Str("tx_hash", txHash).Msg("Payout confirmed")
	e.send(ctx, in.UserID, payoutSent(in, txHash))
	return true
}

var errSkipped = errors.New("skipped")

// submitContext bounds one ledger submission by the confirmation timeout.
func (e *Engine) submitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.ConfirmTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
}

func (e *Engine) journal(ctx context.Context, s *model.Session, userID int64, kind string, amount decimal.Decimal, txHash string, err error) {
	status := model.TxStatusConfirmed
	switch {
	case errors.Is(err, errSkipped):
		status = model.TxStatusSkipped
	case err != nil:
		status = model.TxStatusFailed
	}
	tx := &model.LedgerTransaction{
		RoundID:   s.RoundID,
		ChatID:    s.ChatID,
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		TxHash:    txHash,
		Status:    status,
		CreatedAt: e.now(),
	}
	if err := e.deps.Journal.RecordTransaction(ctx, tx); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("tx_hash", txHash).Msg("Failed to record ledger transaction")
	}
}

func (e *Engine) recordRound(ctx context.Context, s *model.Session, o *Outcome, paid decimal.Decimal) {
	result := string(o.Baccarat)
	if o.Mode == model.ModeInteractive {
		result = fmt.Sprintf("target %d", o.Target)
	}
	round := &model.Round{
		RoundID:   s.RoundID,
		ChatID:    s.ChatID,
		Mode:      s.Mode,
		BetAmount: s.BetAmount,
		Outcome:   result,
		Winners:   o.Winners,
		TotalPaid: paid,
		SettledAt: e.now(),
	}
	if err := e.deps.Journal.RecordRound(ctx, round); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Str("round_id", s.RoundID).Msg("Failed to record round")
	}
}

func (e *Engine) names(ctx context.Context, s *model.Session) map[int64]string {
	names := make(map[int64]string, len(s.Players))
	for _, id := range s.Players {
		names[id] = e.deps.Directory.DisplayName(ctx, id)
	}
	return names
}

// announce reveals the round to the group and to each player privately.
func (e *Engine) announce(ctx context.Context, s *model.Session, o *Outcome, names map[int64]string) {
	if o.Mode == model.ModeInteractive {
		e.send(ctx, s.ChatID, picksMessage(s, o, names))
	} else {
		e.send(ctx, s.ChatID, handsMessage(s))
	}
	for _, id := range s.Players {
		e.send(ctx, id, playerUpdate(s, o, id))
	}
}

func (e *Engine) send(ctx context.Context, chatID int64, msg notify.Message) {
	if _, err := e.deps.Notifier.Send(ctx, chatID, msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver settlement message")
	}
}
