package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/service"
)

// historyLimit is how many ledger movements the wallet view lists.
const historyLimit = 5

// AccountHandler handles private chat commands: wallets and help.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// HandleStart handles /start in a private chat. The wallet is created on
// first use; its secret is shown only then.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	w, created, err := h.accounts.OpenWallet(ctx, sender.ID)
	if err != nil {
		return c.Send(userText(err))
	}

	text := fmt.Sprintf("🎰 <b>Welcome to the Baccarat Table!</b>\n"+
		"💼 <b>Your wallet</b>: <code>%s</code>\n"+
		"Fund it with Sepolia ETH, then join a paid game in any group.", w.Address)
	if created {
		text += fmt.Sprintf("\n\n🔑 <b>Private key</b>: <code>%s</code>\n"+
			"⚠️ This is shown once. Store it somewhere safe.", w.Secret)
	}

	return send(c, notify.Message{
		Text:     text,
		Keyboard: table.PrivateMenuKeyboard(h.accounts.SupportHandle(ctx)),
	})
}

// HandleCallback dispatches a private menu button.
func (h *AccountHandler) HandleCallback(c tele.Context, action string) error {
	_ = c.Respond()

	switch action {
	case table.ActionWallet:
		return h.handleWallet(c)
	case table.ActionHowTo:
		return send(c, table.HowToPlay())
	case table.ActionTutorial:
		return send(c, table.Tutorial())
	}
	return nil
}

func (h *AccountHandler) handleWallet(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	w, err := h.accounts.Wallet(ctx, sender.ID)
	if err != nil {
		return c.Send(userText(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💼 <b>Your wallet</b>: <code>%s</code>", w.Address)

	txs, err := h.accounts.RecentTransactions(ctx, sender.ID, historyLimit)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to load transaction history")
	} else if len(txs) > 0 {
		sb.WriteString("\n\n🧾 <b>Recent activity</b>")
		for _, tx := range txs {
			fmt.Fprintf(&sb, "\n%s %s %s (%s)",
				tx.CreatedAt.Format("01-02 15:04"), tx.Kind, table.FormatAmount(tx.Amount), tx.Status)
		}
	}
	return c.Send(sb.String(), tele.ModeHTML)
}

// HandleCredits handles /whomadethebot.
func (h *AccountHandler) HandleCredits(c tele.Context) error {
	support := h.accounts.SupportHandle(context.Background())
	return c.Reply(fmt.Sprintf("🛠 Built for group baccarat nights. Questions? Ask %s.", support))
}
