package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/config"
	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/service"
)

// GameHandler handles group table commands and game buttons.
type GameHandler struct {
	cfg      *config.Config
	games    *service.GameService
	accounts *service.AccountService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(cfg *config.Config, games *service.GameService, accounts *service.AccountService) *GameHandler {
	return &GameHandler{
		cfg:      cfg,
		games:    games,
		accounts: accounts,
	}
}

func isGroup(chat *tele.Chat) bool {
	return chat != nil && (chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup)
}

// HandleStart handles /start in a group: opens a table or re-posts the
// waiting one.
func (h *GameHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	_, err := h.games.Start(ctx, c.Chat().ID, sender.ID)
	if err != nil && !errors.Is(err, table.ErrSessionOpen) {
		return c.Reply(userText(err))
	}
	return nil
}

// HandleCancel handles /cancel. Only the creator may cancel.
func (h *GameHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !isGroup(c.Chat()) {
		return nil
	}

	if err := h.games.Cancel(context.Background(), c.Chat().ID, sender.ID); err != nil {
		return c.Reply(userText(err))
	}
	return nil
}

// HandleRules handles /rules.
func (h *GameHandler) HandleRules(c tele.Context) error {
	return send(c, table.Rules())
}

// HandleText treats the creator's message as the stake while the table is
// waiting for one. Other text is ignored.
func (h *GameHandler) HandleText(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil || !isGroup(c.Chat()) {
		return nil
	}
	chatID := c.Chat().ID

	if !h.games.AwaitingAmount(ctx, chatID, sender.ID) {
		return nil
	}

	if _, err := h.games.SubmitBetAmount(ctx, chatID, sender.ID, c.Text()); err != nil {
		return c.Reply(userText(err))
	}
	return nil
}

// HandleCallback dispatches a decoded game button.
func (h *GameHandler) HandleCallback(c tele.Context, action string, params []string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	switch action {
	case table.ActionBet:
		return h.handleBet(c, sender.ID, params)
	case table.ActionCard:
		return h.handleCard(c, sender.ID, params)
	case table.ActionRules:
		_ = c.Respond()
		return send(c, table.Rules())
	case table.ActionStats:
		return h.handleStats(c)
	}

	if !isGroup(c.Chat()) {
		return c.Respond()
	}
	return h.handlePanel(c, sender.ID, action, params)
}

// handlePanel runs the group panel buttons.
func (h *GameHandler) handlePanel(c tele.Context, userID int64, action string, params []string) error {
	ctx := context.Background()
	chatID := c.Chat().ID

	var err error
	switch action {
	case table.ActionStart:
		_, err = h.games.Start(ctx, chatID, userID)
		if errors.Is(err, table.ErrSessionOpen) {
			err = nil
		}
	case table.ActionMode:
		if len(params) != 1 {
			return c.Respond()
		}
		_, err = h.games.ChooseMode(ctx, chatID, userID, model.Mode(params[0]))
	case table.ActionSetBet:
		_, err = h.games.BeginSetBet(ctx, chatID, userID)
	case table.ActionFreePlay:
		_, err = h.games.FreePlay(ctx, chatID, userID)
	case table.ActionTestMode:
		if !h.cfg.IsAdmin(userID) {
			return c.Respond(&tele.CallbackResponse{Text: "🚫 Test mode is for bot owners only.", ShowAlert: true})
		}
		_, err = h.games.EnableTestMode(ctx, chatID)
	case table.ActionJoin:
		ref := ""
		if len(params) > 0 {
			ref = params[0]
		}
		var s *model.Session
		s, err = h.games.Join(ctx, chatID, userID, ref)
		if err == nil {
			return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("✅ You joined! %d/%d players", len(s.Players), s.Capacity())})
		}
	default:
		log.Debug().Str("action", action).Msg("Unknown game action")
		return c.Respond()
	}

	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: userText(err), ShowAlert: true})
	}
	return c.Respond()
}

// handleBet runs a private bet button.
func (h *GameHandler) handleBet(c tele.Context, userID int64, params []string) error {
	target, err := table.ParseRoundTarget(params)
	if err != nil {
		log.Debug().Err(err).Msg("Malformed bet button")
		return c.Respond()
	}

	s, err := h.games.PlaceBet(context.Background(), target.ChatID, userID, model.Choice(target.Value), target.Ref)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: userText(err), ShowAlert: true})
	}

	_ = c.Respond()
	return c.Edit(table.BetAccepted(s, model.Choice(target.Value)))
}

// handleCard runs a private card button.
func (h *GameHandler) handleCard(c tele.Context, userID int64, params []string) error {
	target, err := table.ParseRoundTarget(params)
	if err != nil {
		log.Debug().Err(err).Msg("Malformed card button")
		return c.Respond()
	}

	if _, err := h.games.ChooseCard(context.Background(), target.ChatID, userID, target.Value, target.Ref); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: userText(err), ShowAlert: true})
	}

	rank, _ := cards.ParseSymbol(target.Value)
	_ = c.Respond()
	return c.Edit(table.CardAccepted(rank))
}

func (h *GameHandler) handleStats(c tele.Context) error {
	_ = c.Respond()

	stats, err := h.accounts.ChatStats(context.Background(), c.Chat().ID)
	if err != nil {
		return c.Send(userText(err))
	}
	return c.Send(fmt.Sprintf("📊 <b>Table Stats</b>\n"+
		"🎲 Rounds played: %d\n"+
		"💰 Paid rounds: %d\n"+
		"🏆 Total paid out: %s",
		stats.Rounds, stats.PaidRounds, table.FormatAmount(stats.TotalPaid)), tele.ModeHTML)
}

// send replies with a prepared message.
func send(c tele.Context, msg notify.Message) error {
	return c.Send(msg.Text, notify.SendOptions(msg))
}
