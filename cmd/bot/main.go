// Package main is the entry point for the baccarat bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/api"
	"github.com/vvv-blip/baccarat-bot/internal/bot"
	"github.com/vvv-blip/baccarat-bot/internal/config"
	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/game/settlement"
	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/cache"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/db"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/lock"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/timer"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
	"github.com/vvv-blip/baccarat-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	checks := map[string]api.Check{"postgres": dbPool.HealthCheck}

	// Optional profile cache. Left as a nil interface when disabled.
	var profiles service.ProfileCache
	if cfg.Redis.Enabled {
		profileCache, err := cache.New(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer profileCache.Close()
		profiles = profileCache
		checks["redis"] = profileCache.Ping
	}

	house, closeLedger := openLedger(ctx, &cfg.Ledger)
	defer closeLedger()
	settlementLedger := ledger.NewSerial(house)

	maxBet, _ := cfg.Game.MaxBetAmount()
	fee, _ := cfg.Game.Fee()

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	depositRepo := repository.NewDepositRepository(dbPool.Pool)
	journalRepo := repository.NewJournalRepository(dbPool.Pool)
	configRepo := repository.NewConfigRepository(dbPool.Pool)

	teleBot, err := bot.NewTelebot(&cfg.Bot)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	notifier := notify.NewTelegram(teleBot)

	// Initialize services
	accountService := service.NewAccountService(
		userRepo,
		walletRepo,
		configRepo,
		journalRepo,
		profiles,
		cfg.Game.DefaultSupport,
	)

	engine := settlement.NewEngine(settlement.Config{
		FeePercent:     fee,
		ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
		PollInterval:   cfg.Ledger.PollInterval,
	}, settlement.Dependencies{
		Ledger:    settlementLedger,
		Wallets:   walletRepo,
		Deposits:  depositRepo,
		Journal:   journalRepo,
		Directory: accountService,
		Support:   accountService,
		Notifier:  notifier,
	})

	timers := timer.NewRegistry()
	gameService := service.NewGameService(
		service.GameConfig{
			LockTimeout:      cfg.Game.LockTimeout,
			SelectionTimeout: cfg.Game.SelectionTimeout,
		},
		table.NewMachine(table.Policy{MaxBet: maxBet}, cards.NewRandomDealer()),
		sessionRepo,
		depositRepo,
		walletRepo,
		engine,
		notifier,
		lock.NewKeyedLock(),
		timers,
	)

	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:   cfg,
		Games:    gameService,
		Accounts: accountService,
	})

	// Ops HTTP server
	var srv *http.Server
	if cfg.HTTP.Enabled {
		opts := api.Options{
			Release: cfg.HTTP.Release,
			Checks:  checks,
			Games:   gameService,
			Active:  sessionRepo,
		}
		if cfg.Bot.UsesWebhook() {
			opts.Updates = telegramBot
			opts.WebhookSecret = cfg.Bot.WebhookSecret
		}
		srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: api.NewRouter(opts)}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("HTTP server failed")
			}
		}()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Str("mode", cfg.Bot.Mode).Msg("Bot is starting...")
		if err := telegramBot.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start bot")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		stop()
	}
	timers.Stop()
	gameService.Wait()
	log.Info().Msg("Bot stopped gracefully")
}

// openLedger dials the chain, or falls back to an in-memory ledger funded
// with the dev house balance.
func openLedger(ctx context.Context, cfg *config.LedgerConfig) (ledger.Ledger, func()) {
	if cfg.Enabled {
		evm, err := ledger.Dial(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to ledger")
		}
		log.Info().Str("house", evm.HouseAddress()).Msg("Connected to settlement contract")
		return evm, evm.Close
	}

	house := ""
	if cfg.PrivateKey != "" {
		addr, err := ledger.AddressOf(cfg.PrivateKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid house key")
		}
		house = addr
	} else {
		kp, err := ledger.GenerateKeypair()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate dev house key")
		}
		house = kp.Address
	}

	balance, err := decimal.NewFromString(cfg.DevHouseBalance)
	if err != nil {
		balance = decimal.Zero
	}
	log.Warn().
		Str("house", house).
		Str("balance", balance.String()).
		Msg("Ledger disabled, using in-memory ledger")
	return ledger.NewMemory(house, balance), func() {}
}
