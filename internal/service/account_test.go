package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

const defaultSupport = "@arbacenco"

func newAccountService(cache ProfileCache) (*AccountService, *memUsers, *memWallets, *memConfig, *memJournal) {
	users := newMemUsers()
	wallets := newMemWallets()
	settings := &memConfig{values: map[string]string{}}
	journal := &memJournal{}
	return NewAccountService(users, wallets, settings, journal, cache, defaultSupport), users, wallets, settings, journal
}

func TestAccountService_EnsureUserSkipsUnchangedProfile(t *testing.T) {
	cache := newMemCache()
	svc, users, _, _, _ := newAccountService(cache)
	ctx := context.Background()

	u := &model.User{TelegramID: 5, Username: "alice", FirstName: "Alice"}
	require.NoError(t, svc.EnsureUser(ctx, u))
	require.NoError(t, svc.EnsureUser(ctx, u))
	assert.Equal(t, 1, users.upserts)

	renamed := &model.User{TelegramID: 5, Username: "alice_w", FirstName: "Alice"}
	require.NoError(t, svc.EnsureUser(ctx, renamed))
	assert.Equal(t, 2, users.upserts)
	assert.Equal(t, "alice_w", svc.DisplayName(ctx, 5))
}

func TestAccountService_DisplayName(t *testing.T) {
	svc, users, _, _, _ := newAccountService(nil)
	ctx := context.Background()

	assert.Equal(t, "User77", svc.DisplayName(ctx, 77))

	_, err := users.Upsert(ctx, &model.User{TelegramID: 77, FirstName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", svc.DisplayName(ctx, 77))
}

func TestAccountService_OpenWalletOnce(t *testing.T) {
	svc, _, _, _, _ := newAccountService(nil)
	ctx := context.Background()

	w, created, err := svc.OpenWallet(ctx, 9)
	require.NoError(t, err)
	assert.True(t, created)

	addr, err := ledger.AddressOf(w.Secret)
	require.NoError(t, err)
	assert.Equal(t, w.Address, addr)

	again, created, err := svc.OpenWallet(ctx, 9)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, w.Address, again.Address)
}

func TestAccountService_OpenWalletLosesRace(t *testing.T) {
	svc, _, wallets, _, _ := newAccountService(nil)
	winner := &model.Wallet{UserID: 9, Address: "0x00000000000000000000000000000000000000bb", Secret: "s"}
	wallets.raceWith = winner

	w, created, err := svc.OpenWallet(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.Address, w.Address)
}

func TestAccountService_Wallet(t *testing.T) {
	svc, _, _, _, _ := newAccountService(nil)

	_, err := svc.Wallet(context.Background(), 3)
	assert.ErrorIs(t, err, table.ErrWalletRequired)
}

func TestAccountService_SupportHandle(t *testing.T) {
	svc, _, _, settings, _ := newAccountService(nil)
	ctx := context.Background()

	assert.Equal(t, defaultSupport, svc.SupportHandle(ctx))

	require.NoError(t, svc.SetSupportHandle(ctx, "@casino_help"))
	assert.Equal(t, "@casino_help", svc.SupportHandle(ctx))
	assert.Equal(t, "@casino_help", settings.values[repository.ConfigSupportUsername])

	for _, bad := range []string{"casino_help", "@abc", "@has space", "@dash-ed_name", "@" + strings.Repeat("a", 33)} {
		assert.ErrorIs(t, svc.SetSupportHandle(ctx, bad), table.ErrInvalidSupport, bad)
	}
	assert.Equal(t, "@casino_help", svc.SupportHandle(ctx))
}

func TestSupportPatternProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		handle := rapid.StringMatching(`[A-Za-z0-9_]{5,32}`).Draw(t, "handle")
		if !supportPattern.MatchString("@" + handle) {
			t.Fatalf("valid handle @%s rejected", handle)
		}
		if supportPattern.MatchString(handle) {
			t.Fatalf("handle without @ accepted: %s", handle)
		}
	})
}

func TestAccountService_ChatStats(t *testing.T) {
	svc, _, _, _, journal := newAccountService(nil)
	ctx := context.Background()

	require.NoError(t, journal.RecordRound(ctx, &model.Round{ChatID: 1, BetAmount: decimal.Zero, TotalPaid: decimal.Zero}))
	require.NoError(t, journal.RecordRound(ctx, &model.Round{
		ChatID: 1, BetAmount: decimal.RequireFromString("0.5"), TotalPaid: decimal.RequireFromString("0.975"),
	}))
	require.NoError(t, journal.RecordRound(ctx, &model.Round{ChatID: 2, BetAmount: decimal.NewFromInt(1), TotalPaid: decimal.NewFromInt(2)}))

	stats, err := svc.ChatStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Rounds)
	assert.Equal(t, int64(1), stats.PaidRounds)
	assert.Equal(t, "0.975", stats.TotalPaid.String())
}

func TestAccountService_RecentTransactions(t *testing.T) {
	svc, _, _, _, journal := newAccountService(nil)
	ctx := context.Background()

	for i, kind := range []string{model.TxKindDeposit, model.TxKindPayout, model.TxKindDeposit} {
		require.NoError(t, journal.RecordTransaction(ctx, &model.LedgerTransaction{
			ID: int64(i + 1), UserID: 7, Kind: kind, Amount: decimal.NewFromInt(1),
		}))
	}
	require.NoError(t, journal.RecordTransaction(ctx, &model.LedgerTransaction{ID: 9, UserID: 8, Kind: model.TxKindDeposit}))

	txs, err := svc.RecentTransactions(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(3), txs[0].ID)
	assert.Equal(t, int64(2), txs[1].ID)
}
