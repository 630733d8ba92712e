// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func eth(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSession(chatID int64) *model.Session {
	return &model.Session{
		ChatID:    chatID,
		RoundID:   uuid.NewString(),
		CreatorID: 42,
		Status:    model.StatusWaiting,
		BetAmount: decimal.Zero,
	}
}

// ============================================================================
// SessionRepository Tests
// ============================================================================

func TestSessionRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := newSession(-100)
	s.Mode = model.ModeSimple
	s.Status = model.StatusBetting
	s.BetAmount = eth("0.25")
	s.BetSet = true
	s.Players = []int64{1, 2}
	s.Bets = map[int64]model.Bet{1: {Choice: model.ChoiceBanker, Amount: eth("0.25")}}
	s.Hand = &model.Hand{PlayerCards: []int{13, 3}, BankerCards: []int{2, 4}, BankerDrew: true}

	created, err := repo.Create(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	got, err := repo.Get(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, s.RoundID, got.RoundID)
	assert.Equal(t, model.ModeSimple, got.Mode)
	assert.Equal(t, model.StatusBetting, got.Status)
	assert.True(t, got.BetAmount.Equal(eth("0.25")))
	assert.Equal(t, []int64{1, 2}, got.Players)
	require.Contains(t, got.Bets, int64(1))
	assert.Equal(t, model.ChoiceBanker, got.Bets[1].Choice)
	assert.True(t, got.Bets[1].Amount.Equal(eth("0.25")))
	require.NotNil(t, got.Hand)
	assert.Equal(t, []int{13, 3}, got.Hand.PlayerCards)
	assert.True(t, got.Hand.BankerDrew)
	assert.Empty(t, got.CardChoices)
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, newSession(-100))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSession(-100))
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewSessionRepository(pool).Get(context.Background(), -1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_UpdateCompareAndSwap(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, newSession(-100))
	require.NoError(t, err)

	first := created.Clone()
	first.Players = []int64{7}
	updated, err := repo.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// A writer still holding version 1 loses.
	stale := created.Clone()
	stale.Players = []int64{8}
	_, err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := repo.Get(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, got.Players)
}

func TestSessionRepository_ConcurrentJoinsOneWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, newSession(-100))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := int64(1); i <= 5; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			s := created.Clone()
			s.Players = append(s.Players, uid)
			_, err := repo.Update(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrVersionConflict):
				conflict++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 4, conflict)

	got, err := repo.Get(ctx, -100)
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)
}

func TestSessionRepository_ReplaceAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	old := newSession(-100)
	old.Status = model.StatusSettled
	_, err := repo.Create(ctx, old)
	require.NoError(t, err)

	fresh := newSession(-100)
	fresh.CreatorID = 0
	replaced, err := repo.Replace(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, fresh.RoundID, replaced.RoundID)
	assert.Equal(t, model.StatusWaiting, replaced.Status)
	assert.Equal(t, int64(2), replaced.Version)

	n, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, -100))
	require.NoError(t, repo.Delete(ctx, -100))
	_, err = repo.Get(ctx, -100)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ============================================================================
// UserRepository / WalletRepository Tests
// ============================================================================

func TestUserRepository_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &model.User{TelegramID: 12345, Username: "alice"})
	require.NoError(t, err)

	user, err := repo.Upsert(ctx, &model.User{TelegramID: 12345, Username: "alice2", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)

	got, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWalletRepository_CreateOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewWalletRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByUserID(ctx, 1)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	w, err := repo.Create(ctx, 1, "0xabc", "secret")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", w.Address)

	_, err = repo.Create(ctx, 1, "0xdef", "other")
	assert.ErrorIs(t, err, ErrWalletExists)

	got, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Address)
	assert.Equal(t, "secret", got.Secret)

	ok, err := repo.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ============================================================================
// DepositRepository / ConfigRepository / JournalRepository Tests
// ============================================================================

func TestDepositRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDepositRepository(pool)
	ctx := context.Background()

	// two rounds of the same chat, e.g. one settling while the next takes bets
	_, err := repo.Create(ctx, "round-a", -100, 1, eth("0.1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "round-a", -100, 2, eth("0.1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "round-b", -100, 1, eth("0.3"))
	require.NoError(t, err)

	// restaking in the same round replaces the amount
	d, err := repo.Create(ctx, "round-a", -100, 2, eth("0.2"))
	require.NoError(t, err)
	assert.Equal(t, "round-a", d.RoundID)

	list, err := repo.ListByRound(ctx, "round-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].UserID)
	assert.True(t, list[0].Amount.Equal(eth("0.1")))
	assert.True(t, list[1].Amount.Equal(eth("0.2")))

	require.NoError(t, repo.Delete(ctx, "round-a", 2))
	list, err = repo.ListByRound(ctx, "round-a")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteByRound(ctx, "round-a"))
	list, err = repo.ListByRound(ctx, "round-a")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.ListByRound(ctx, "round-b")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(-100), list[0].ChatID)
}

func TestConfigRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewConfigRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, ConfigSupportUsername)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, repo.Set(ctx, ConfigSupportUsername, "@helpdesk"))
	require.NoError(t, repo.Set(ctx, ConfigSupportUsername, "@helpdesk2"))

	v, err := repo.Get(ctx, ConfigSupportUsername)
	require.NoError(t, err)
	assert.Equal(t, "@helpdesk2", v)
}

func TestJournalRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewJournalRepository(pool)
	ctx := context.Background()

	roundID := uuid.NewString()
	tx := &model.LedgerTransaction{
		RoundID: roundID, ChatID: -100, UserID: 1,
		Kind: model.TxKindPayout, Amount: eth("0.95"), TxHash: "0x01", Status: model.TxStatusConfirmed,
	}
	require.NoError(t, repo.RecordTransaction(ctx, tx))
	assert.NotZero(t, tx.ID)

	txs, err := repo.TransactionsByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x01", txs[0].TxHash)
	assert.True(t, txs[0].Amount.Equal(eth("0.95")))

	now := time.Now()
	require.NoError(t, repo.RecordRound(ctx, &model.Round{
		RoundID: roundID, ChatID: -100, Mode: model.ModeInteractive, BetAmount: eth("0.25"),
		Outcome: "target 7", Winners: []int64{1}, TotalPaid: eth("0.95"), SettledAt: now,
	}))
	require.NoError(t, repo.RecordRound(ctx, &model.Round{
		RoundID: uuid.NewString(), ChatID: -100, Mode: model.ModeSimple, BetAmount: decimal.Zero,
		Outcome: "banker", TotalPaid: decimal.Zero, SettledAt: now,
	}))

	stats, err := repo.ChatStats(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Rounds)
	assert.Equal(t, int64(1), stats.PaidRounds)
	assert.True(t, stats.TotalPaid.Equal(eth("0.95")))

	empty, err := repo.ChatStats(ctx, -999)
	require.NoError(t, err)
	assert.Zero(t, empty.Rounds)
	assert.True(t, empty.TotalPaid.IsZero())
}

func TestStoreErrorsWrapPersistence(t *testing.T) {
	err := storeError("get game session", errors.New("conn refused"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "get game session")
	assert.Contains(t, err.Error(), "conn refused")
}
