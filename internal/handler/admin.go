package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/service"
)

// AdminHandler handles owner commands. Access is checked by AdminMiddleware.
type AdminHandler struct {
	games    *service.GameService
	accounts *service.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(games *service.GameService, accounts *service.AccountService) *AdminHandler {
	return &AdminHandler{
		games:    games,
		accounts: accounts,
	}
}

// HandleReset handles /reset: the chat's game is deleted in any state.
func (h *AdminHandler) HandleReset(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !isGroup(c.Chat()) {
		return nil
	}

	if err := h.games.Reset(context.Background(), c.Chat().ID); err != nil {
		return c.Reply(userText(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("chat_id", c.Chat().ID).
		Str("operation", "reset").
		Msg("Admin operation executed")
	return nil
}

// HandleSetSupport handles /setsupport @handle.
func (h *AdminHandler) HandleSetSupport(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("❌ Usage: /setsupport @username")
	}
	handle := strings.TrimSpace(args[0])

	if err := h.accounts.SetSupportHandle(context.Background(), handle); err != nil {
		return c.Reply(userText(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("support", handle).
		Str("operation", "setsupport").
		Msg("Admin operation executed")
	return c.Reply("✅ Support username updated to " + handle)
}
