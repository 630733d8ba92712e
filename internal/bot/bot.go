// Package bot provides the Telegram bot initialization and update routing.
package bot

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/config"
	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/handler"
	"github.com/vvv-blip/baccarat-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot  *tele.Bot
	cfg  *config.Config
	seen *SeenUsers

	gameHandler    *handler.GameHandler
	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Games    *service.GameService
	Accounts *service.AccountService
}

// NewTelebot creates the telebot client. In webhook mode no poller runs;
// updates arrive through ProcessUpdate.
func NewTelebot(cfg *config.BotConfig) (*tele.Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is required")
	}

	pref := tele.Settings{
		Token: cfg.Token,
		OnError: func(err error, c tele.Context) {
			evt := log.Error().Err(err)
			if c != nil && c.Chat() != nil {
				evt = evt.Int64("chat_id", c.Chat().ID)
			}
			evt.Msg("Handler error")
		},
	}
	if !cfg.UsesWebhook() {
		pref.Poller = &tele.LongPoller{Timeout: cfg.PollTimeout}
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New creates a Bot on top of teleBot and registers every route.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		seen:           NewSeenUsers(),
		gameHandler:    handler.NewGameHandler(deps.Config, deps.Games, deps.Accounts),
		accountHandler: handler.NewAccountHandler(deps.Accounts),
		adminHandler:   handler.NewAdminHandler(deps.Games, deps.Accounts),
	}

	b.registerMiddleware(deps.Accounts)
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware. Order matters: recovery
// wraps everything, the whitelist runs before any work is done.
func (b *Bot) registerMiddleware(profiles ProfileRecorder) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.seen))
	b.bot.Use(TrackUserMiddleware(profiles))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/cancel", b.gameHandler.HandleCancel)
	b.bot.Handle("/rules", b.gameHandler.HandleRules)
	b.bot.Handle("/whomadethebot", b.accountHandler.HandleCredits)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/reset", b.adminHandler.HandleReset)
	adminGroup.Handle("/setsupport", b.adminHandler.HandleSetSupport)

	b.bot.Handle(tele.OnText, b.gameHandler.HandleText)
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleStart routes /start to the wallet menu (private) or the table (group).
func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat != nil && chat.Type == tele.ChatPrivate {
		return b.accountHandler.HandleStart(c)
	}
	return b.gameHandler.HandleStart(c)
}

// handleCallback routes buttons by action.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	action, params := table.DecodeCallback(callback.Data)
	log.Debug().Str("action", action).Strs("params", params).Msg("Callback received")

	switch action {
	case "":
		return c.Respond()
	case table.ActionWallet, table.ActionHowTo, table.ActionTutorial:
		return b.accountHandler.HandleCallback(c, action)
	default:
		return b.gameHandler.HandleCallback(c, action, params)
	}
}

// Start begins receiving updates. In polling mode it blocks until Stop;
// in webhook mode it registers the webhook and returns.
func (b *Bot) Start() error {
	if b.cfg.Bot.UsesWebhook() {
		wh := &tele.Webhook{
			Endpoint:    &tele.WebhookEndpoint{PublicURL: b.cfg.Bot.WebhookURL},
			SecretToken: b.cfg.Bot.WebhookSecret,
		}
		if err := b.bot.SetWebhook(wh); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		log.Info().Str("url", b.cfg.Bot.WebhookURL).Msg("Webhook registered")
		return nil
	}

	log.Info().Msg("Starting bot polling...")
	b.bot.Start()
	return nil
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if !b.cfg.Bot.UsesWebhook() {
		b.bot.Stop()
	}
}

// ProcessUpdate handles one update received through the webhook.
func (b *Bot) ProcessUpdate(u tele.Update) {
	b.bot.ProcessUpdate(u)
}
