// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

// UserStore persists user profiles.
type UserStore interface {
	Upsert(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
}

// WalletStore persists custodial wallets.
type WalletStore interface {
	Create(ctx context.Context, userID int64, address, secret string) (*model.Wallet, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}

// ConfigStore holds runtime bot settings.
type ConfigStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// StatsReader aggregates round history.
type StatsReader interface {
	ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error)
	TransactionsByUser(ctx context.Context, userID int64, limit int) ([]*model.LedgerTransaction, error)
}

// ProfileCache keeps profiles close to the bot. Optional.
type ProfileCache interface {
	Get(ctx context.Context, userID int64) (*model.User, error)
	Set(ctx context.Context, user *model.User) error
}

var supportPattern = regexp.MustCompile(`^@[A-Za-z0-9_]{5,32}$`)

// AccountService handles user profiles, custodial wallets and bot settings.
type AccountService struct {
	users          UserStore
	wallets        WalletStore
	settings       ConfigStore
	stats          StatsReader
	cache          ProfileCache
	defaultSupport string
}

// NewAccountService creates a new AccountService instance. cache may be nil.
func NewAccountService(
	users UserStore,
	wallets WalletStore,
	settings ConfigStore,
	stats StatsReader,
	cache ProfileCache,
	defaultSupport string,
) *AccountService {
	return &AccountService{
		users:          users,
		wallets:        wallets,
		settings:       settings,
		stats:          stats,
		cache:          cache,
		defaultSupport: defaultSupport,
	}
}

func sameProfile(a, b *model.User) bool {
	return a.Username == b.Username && a.FirstName == b.FirstName && a.LastName == b.LastName
}

// EnsureUser records the profile as observed in an update. An unchanged
// cached profile skips the database write.
func (s *AccountService) EnsureUser(ctx context.Context, u *model.User) error {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, u.TelegramID); err == nil && sameProfile(cached, u) {
			return nil
		}
	}

	saved, err := s.users.Upsert(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, saved); err != nil {
			log.Debug().Err(err).Int64("user_id", u.TelegramID).Msg("Failed to cache profile")
		}
	}
	return nil
}

// DisplayName returns the best known handle of userID. It never fails.
func (s *AccountService) DisplayName(ctx context.Context, userID int64) string {
	if s.cache != nil {
		if u, err := s.cache.Get(ctx, userID); err == nil {
			return u.DisplayName()
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to load profile")
		}
		return model.FallbackName(userID)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, u)
	}
	return u.DisplayName()
}

// OpenWallet returns userID's wallet, creating it on first use.
// created is true only for the call that generated the key.
func (s *AccountService) OpenWallet(ctx context.Context, userID int64) (w *model.Wallet, created bool, err error) {
	w, err = s.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, repository.ErrWalletNotFound) {
		return nil, false, err
	}

	kp, err := ledger.GenerateKeypair()
	if err != nil {
		return nil, false, err
	}

	w, err = s.wallets.Create(ctx, userID, kp.Address, kp.Secret)
	if errors.Is(err, repository.ErrWalletExists) {
		// Lost a race with another /start; the first key wins.
		w, err = s.wallets.GetByUserID(ctx, userID)
		return w, false, err
	}
	if err != nil {
		return nil, false, err
	}

	log.Info().Int64("user_id", userID).Str("address", w.Address).Msg("Wallet created")
	return w, true, nil
}

// Wallet returns userID's wallet or table.ErrWalletRequired.
func (s *AccountService) Wallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return nil, table.ErrWalletRequired
	}
	return w, err
}

// SupportHandle returns the configured support handle.
func (s *AccountService) SupportHandle(ctx context.Context) string {
	handle, err := s.settings.Get(ctx, repository.ConfigSupportUsername)
	if err != nil {
		if !errors.Is(err, repository.ErrConfigNotFound) {
			log.Warn().Err(err).Msg("Failed to load support handle")
		}
		return s.defaultSupport
	}
	return handle
}

// SetSupportHandle validates and stores a new support handle.
func (s *AccountService) SetSupportHandle(ctx context.Context, handle string) error {
	if !supportPattern.MatchString(handle) {
		return table.ErrInvalidSupport
	}
	if err := s.settings.Set(ctx, repository.ConfigSupportUsername, handle); err != nil {
		return err
	}
	log.Info().Str("support", handle).Msg("Support handle updated")
	return nil
}

// ChatStats returns round history totals of chatID.
func (s *AccountService) ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error) {
	return s.stats.ChatStats(ctx, chatID)
}

// RecentTransactions returns the user's latest ledger movements.
func (s *AccountService) RecentTransactions(ctx context.Context, userID int64, limit int) ([]*model.LedgerTransaction, error) {
	return s.stats.TransactionsByUser(ctx, userID, limit)
}
