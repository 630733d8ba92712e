package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/game/settlement"
	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/lock"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/timer"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

// SessionStore persists one session per chat.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) (*model.Session, error)
	Replace(ctx context.Context, s *model.Session) (*model.Session, error)
	Get(ctx context.Context, chatID int64) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) (*model.Session, error)
	Delete(ctx context.Context, chatID int64) error
}

// DepositStore records stakes at bet time, keyed by round.
type DepositStore interface {
	Create(ctx context.Context, roundID string, chatID, userID int64, amount decimal.Decimal) (*model.PendingDeposit, error)
	Delete(ctx context.Context, roundID string, userID int64) error
	DeleteByRound(ctx context.Context, roundID string) error
}

// WalletChecker tells whether a user can stake.
type WalletChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Settler runs the ledger side of a finished round.
type Settler interface {
	Settle(ctx context.Context, s *model.Session) (*settlement.Report, error)
}

// GameConfig holds orchestration timings.
type GameConfig struct {
	LockTimeout      time.Duration
	SelectionTimeout time.Duration
}

// GameService runs table operations against the store. Every mutation of a
// chat's session happens under that chat's lock as load, mutate, persist.
// Notifications, timers and settlement run after the lock is released.
type GameService struct {
	cfg      GameConfig
	machine  *table.Machine
	sessions SessionStore
	deposits DepositStore
	wallets  WalletChecker
	settler  Settler
	notifier notify.Notifier
	locks    *lock.KeyedLock
	timers   *timer.Registry

	settling sync.WaitGroup
}

// NewGameService creates a new GameService instance.
func NewGameService(
	cfg GameConfig,
	machine *table.Machine,
	sessions SessionStore,
	deposits DepositStore,
	wallets WalletChecker,
	settler Settler,
	notifier notify.Notifier,
	locks *lock.KeyedLock,
	timers *timer.Registry,
) *GameService {
	return &GameService{
		cfg:      cfg,
		machine:  machine,
		sessions: sessions,
		deposits: deposits,
		wallets:  wallets,
		settler:  settler,
		notifier: notifier,
		locks:    locks,
		timers:   timers,
	}
}

// Policy returns the table limits.
func (g *GameService) Policy() table.Policy {
	return g.machine.Policy()
}

// Wait blocks until every settlement in flight has finished.
func (g *GameService) Wait() {
	g.settling.Wait()
}

// load returns the chat's session or table.ErrNoSession.
func (g *GameService) load(ctx context.Context, chatID int64) (*model.Session, error) {
	s, err := g.sessions.Get(ctx, chatID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, table.ErrNoSession
	}
	return s, err
}

// Session returns the chat's current session.
func (g *GameService) Session(ctx context.Context, chatID int64) (*model.Session, error) {
	return g.load(ctx, chatID)
}

// mutate loads the chat's session, applies fn and saves the result, all
// under the chat lock. Nothing is written when fn fails.
func (g *GameService) mutate(ctx context.Context, chatID int64, fn func(s *model.Session) error) (*model.Session, error) {
	var saved *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		s, err := g.load(ctx, chatID)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		saved, err = g.sessions.Update(ctx, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Start opens a game in chatID. A game already waiting for players is
// returned with table.ErrSessionOpen after its panel is re-posted.
func (g *GameService) Start(ctx context.Context, chatID, userID int64) (*model.Session, error) {
	var saved *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		existing, err := g.load(ctx, chatID)
		if err != nil && !errors.Is(err, table.ErrNoSession) {
			return err
		}

		s, err := g.machine.Start(existing, chatID, userID)
		if err != nil {
			saved = s
			return err
		}
		if existing == nil {
			saved, err = g.sessions.Create(ctx, s)
		} else {
			saved, err = g.sessions.Replace(ctx, s)
		}
		return err
	})

	switch {
	case errors.Is(err, table.ErrSessionOpen):
		g.repostPanel(ctx, saved)
		return saved, err
	case err != nil:
		return nil, err
	}

	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Str("round_id", saved.RoundID).Msg("Game started")
	g.repostPanel(ctx, saved)
	return saved, nil
}

// ChooseMode sets the game mode.
func (g *GameService) ChooseMode(ctx context.Context, chatID, userID int64, mode model.Mode) (*model.Session, error) {
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		return g.machine.ChooseMode(s, userID, mode)
	})
	if err != nil {
		return nil, err
	}
	g.send(ctx, chatID, table.ModeSelected(s))
	g.repostPanel(ctx, s)
	return s, nil
}

// BeginSetBet asks the creator to type the stake.
func (g *GameService) BeginSetBet(ctx context.Context, chatID, userID int64) (*model.Session, error) {
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		return g.machine.BeginSetBet(s, userID)
	})
	if err != nil {
		return nil, err
	}
	g.send(ctx, chatID, table.AskBetAmount(g.machine.Policy().MaxBet))
	g.repostPanel(ctx, s)
	return s, nil
}

// AwaitingAmount reports whether userID's next text in chatID is a stake.
func (g *GameService) AwaitingAmount(ctx context.Context, chatID, userID int64) bool {
	s, err := g.load(ctx, chatID)
	if err != nil {
		return false
	}
	return s.Status == model.StatusSettingBet && s.CreatorID == userID
}

// SubmitBetAmount applies the creator's typed stake. An invalid amount leaves
// the session waiting for another attempt.
func (g *GameService) SubmitBetAmount(ctx context.Context, chatID, userID int64, text string) (*model.Session, error) {
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		return g.machine.SetBet(s, userID, text)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("chat_id", chatID).Str("bet_amount", s.BetAmount.String()).Msg("Bet amount set")
	g.repostPanel(ctx, s)
	return s, nil
}

// FreePlay starts a game without stakes.
func (g *GameService) FreePlay(ctx context.Context, chatID, userID int64) (*model.Session, error) {
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		return g.machine.FreePlay(s, userID)
	})
	if err != nil {
		return nil, err
	}
	g.repostPanel(ctx, s)
	return s, nil
}

// EnableTestMode caps the table at two seats. Owner-only; checked by the caller.
func (g *GameService) EnableTestMode(ctx context.Context, chatID int64) (*model.Session, error) {
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		return g.machine.EnableTestMode(s)
	})
	if err != nil {
		return nil, err
	}
	g.repostPanel(ctx, s)
	return s, nil
}

// Join seats userID. Taking the last seat opens betting and sends every
// player a private bet prompt.
func (g *GameService) Join(ctx context.Context, chatID, userID int64, ref string) (*model.Session, error) {
	var res table.Result
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		if err := table.CheckRound(s, ref); err != nil {
			return err
		}
		hasWallet := true
		if !s.IsFree() {
			ok, err := g.wallets.Exists(ctx, userID)
			if err != nil {
				return err
			}
			hasWallet = ok
		}
		var err error
		res, err = g.machine.Join(s, userID, hasWallet)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Int("players", len(s.Players)).Msg("Player joined")

	if res.Filled {
		for _, id := range s.Players {
			g.send(ctx, id, table.BetPrompt(s))
		}
		g.send(ctx, chatID, table.GameReady(s))
	}
	g.repostPanel(ctx, s)
	return s, nil
}

// PlaceBet records userID's bet and, in a paid game, the stake. The last bet
// either opens card selection or settles the round. The stake is dropped
// again when the session write fails.
func (g *GameService) PlaceBet(ctx context.Context, chatID, userID int64, choice model.Choice, ref string) (*model.Session, error) {
	var (
		res table.Result
		s   *model.Session
	)
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		current, err := g.load(ctx, chatID)
		if err != nil {
			return err
		}
		if err := table.CheckRound(current, ref); err != nil {
			return err
		}
		if res, err = g.machine.PlaceBet(current, userID, choice); err != nil {
			return err
		}
		if res.ReadyToSettle {
			if err := g.machine.MarkSettled(current); err != nil {
				return err
			}
		}

		staked := !current.IsFree()
		if staked {
			if _, err := g.deposits.Create(ctx, current.RoundID, chatID, userID, current.BetAmount); err != nil {
				return err
			}
		}
		s, err = g.sessions.Update(ctx, current)
		if err != nil && staked {
			if derr := g.deposits.Delete(ctx, current.RoundID, userID); derr != nil {
				log.Error().Err(derr).Int64("chat_id", chatID).Int64("user_id", userID).Msg("Failed to drop stake of unsaved bet")
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("chat_id", chatID).
		Int64("user_id", userID).
		Str("choice", string(choice)).
		Int("bets", len(s.Bets)).
		Msg("Bet placed")

	switch {
	case res.SelectionStarted:
		g.openSelection(ctx, s)
	case res.ReadyToSettle:
		g.settleAsync(s)
	default:
		g.repostPanel(ctx, s)
	}
	return s, nil
}

// ChooseCard records userID's card. The last card cancels the selection
// timer and settles the round.
func (g *GameService) ChooseCard(ctx context.Context, chatID, userID int64, symbol, ref string) (*model.Session, error) {
	var res table.Result
	s, err := g.mutate(ctx, chatID, func(s *model.Session) error {
		if err := table.CheckRound(s, ref); err != nil {
			return err
		}
		var err error
		if res, err = g.machine.ChooseCard(s, userID, symbol); err != nil {
			return err
		}
		if res.ReadyToSettle {
			return g.machine.MarkSettled(s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.ReadyToSettle {
		g.timers.Cancel(chatID)
		g.settleAsync(s)
		return s, nil
	}
	g.repostPanel(ctx, s)
	return s, nil
}

// openSelection arms the pick deadline and prompts every player.
func (g *GameService) openSelection(ctx context.Context, s *model.Session) {
	chatID := s.ChatID
	g.timers.Arm(chatID, s.RoundID, g.cfg.SelectionTimeout, func(roundID string) {
		g.onSelectionTimeout(context.Background(), chatID, roundID)
	})

	g.send(ctx, chatID, table.SelectionOpened(s, int(g.cfg.SelectionTimeout.Seconds())))
	for _, id := range s.Players {
		g.send(ctx, id, table.CardPrompt(s))
	}
	g.repostPanel(ctx, s)
}

// onSelectionTimeout drops a round whose picks did not all arrive. It does
// nothing if the round already moved on.
func (g *GameService) onSelectionTimeout(ctx context.Context, chatID int64, roundID string) {
	var expired *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		s, err := g.load(ctx, chatID)
		if err != nil {
			return err
		}
		if !table.SelectionExpired(s, roundID) {
			return nil
		}
		if err := g.sessions.Delete(ctx, chatID); err != nil {
			return err
		}
		expired = s
		return nil
	})
	if err != nil {
		if !errors.Is(err, table.ErrNoSession) {
			log.Error().Err(err).Int64("chat_id", chatID).Str("round_id", roundID).Msg("Selection timeout failed")
		}
		return
	}
	if expired == nil {
		log.Debug().Int64("chat_id", chatID).Str("round_id", roundID).Msg("Selection timer fired after round moved on")
		return
	}

	log.Warn().Int64("chat_id", chatID).Str("round_id", roundID).Msg("Card selection timed out, game cancelled")
	g.clearDeposits(ctx, chatID, roundID)
	g.deletePanel(ctx, expired)
	g.send(ctx, chatID, table.SelectionTimedOut())
}

// Cancel lets the creator abandon the chat's game.
func (g *GameService) Cancel(ctx context.Context, chatID, userID int64) error {
	var cancelled *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		s, err := g.load(ctx, chatID)
		if err != nil {
			return err
		}
		if err := g.machine.Cancel(s, userID); err != nil {
			return err
		}
		if err := g.sessions.Delete(ctx, chatID); err != nil {
			return err
		}
		cancelled = s
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Str("round_id", cancelled.RoundID).Msg("Game cancelled")
	g.timers.Cancel(chatID)
	g.clearDeposits(ctx, chatID, cancelled.RoundID)
	g.deletePanel(ctx, cancelled)
	g.send(ctx, chatID, table.Cancelled())
	return nil
}

// Reset deletes the chat's game in any state. Owner-only; checked by the caller.
func (g *GameService) Reset(ctx context.Context, chatID int64) error {
	var old *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		s, err := g.load(ctx, chatID)
		if err != nil && !errors.Is(err, table.ErrNoSession) {
			return err
		}
		old = s
		return g.sessions.Delete(ctx, chatID)
	})
	if err != nil {
		return err
	}

	log.Info().Int64("chat_id", chatID).Msg("Game reset")
	g.timers.Cancel(chatID)
	if old != nil {
		g.clearDeposits(ctx, chatID, old.RoundID)
		g.deletePanel(ctx, old)
	}
	g.send(ctx, chatID, table.Reset())
	return nil
}

// settleAsync pays out a Settled round in the background.
func (g *GameService) settleAsync(s *model.Session) {
	snapshot := s.Clone()
	g.settling.Add(1)
	go func() {
		defer g.settling.Done()
		g.settle(context.Background(), snapshot)
	}()
}

// settle runs the ledger side of a Settled round and then replaces it with a
// fresh Waiting session, unless the chat already started another round.
func (g *GameService) settle(ctx context.Context, snapshot *model.Session) {
	chatID := snapshot.ChatID
	g.deletePanel(ctx, snapshot)

	if _, err := g.settler.Settle(ctx, snapshot); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Str("round_id", snapshot.RoundID).Msg("Settlement failed")
	}

	var fresh *model.Session
	err := g.locks.WithLock(ctx, chatID, g.cfg.LockTimeout, func() error {
		current, err := g.load(ctx, chatID)
		switch {
		case errors.Is(err, table.ErrNoSession):
			return nil
		case err != nil:
			return err
		case current.RoundID != snapshot.RoundID:
			return nil
		}
		fresh, err = g.sessions.Replace(ctx, g.machine.NewSession(chatID, 0))
		return err
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to open the next round")
		return
	}
	if fresh == nil {
		return
	}

	log.Info().Int64("chat_id", chatID).Str("round_id", fresh.RoundID).Msg("Next round opened")
	g.repostPanel(ctx, fresh)
}

// errPanelStale marks a panel posted for a round the chat has left.
var errPanelStale = errors.New("status panel belongs to a finished round")

// repostPanel posts a fresh pinned status panel and then deletes the one it
// replaced. The swap happens under the chat lock so concurrent reposts never
// leave more than one panel behind.
func (g *GameService) repostPanel(ctx context.Context, s *model.Session) {
	if s == nil {
		return
	}

	msgID, err := g.notifier.Send(ctx, s.ChatID, table.StatusPanel(s))
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to post status panel")
		return
	}
	if err := g.notifier.Pin(ctx, s.ChatID, msgID); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to pin status panel")
	}

	var replaced int
	err = g.locks.WithLock(ctx, s.ChatID, g.cfg.LockTimeout, func() error {
		current, err := g.load(ctx, s.ChatID)
		if err != nil {
			return err
		}
		if current.RoundID != s.RoundID || current.Status == model.StatusSettled {
			return errPanelStale
		}
		previous := current.MessageID
		current.MessageID = msgID
		if _, err := g.sessions.Update(ctx, current); err != nil {
			return err
		}
		replaced = previous
		return nil
	})
	if err != nil {
		if !errors.Is(err, table.ErrNoSession) && !errors.Is(err, errPanelStale) {
			log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to remember status panel")
		}
		g.deleteMessage(ctx, s.ChatID, msgID)
		return
	}
	g.deleteMessage(ctx, s.ChatID, replaced)
}

func (g *GameService) deletePanel(ctx context.Context, s *model.Session) {
	g.deleteMessage(ctx, s.ChatID, s.MessageID)
}

func (g *GameService) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := g.notifier.Delete(ctx, chatID, messageID); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Failed to delete status panel")
	}
}

func (g *GameService) clearDeposits(ctx context.Context, chatID int64, roundID string) {
	if err := g.deposits.DeleteByRound(ctx, roundID); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Str("round_id", roundID).Msg("Failed to clear pending deposits")
	}
}

func (g *GameService) send(ctx context.Context, chatID int64, msg notify.Message) {
	if _, err := g.notifier.Send(ctx, chatID, msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

