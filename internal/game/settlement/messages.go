package settlement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
)

func testBadge(s *model.Session) string {
	if s.TestMode {
		return "🧪 Test Mode! "
	}
	return ""
}

func outcomeName(o cards.Outcome) string {
	switch o {
	case cards.OutcomePlayer:
		return "Player"
	case cards.OutcomeBanker:
		return "Banker"
	default:
		return "Tie"
	}
}

// handsMessage reveals the dealt cards to the group.
func handsMessage(s *model.Session) notify.Message {
	return notify.Message{Text: fmt.Sprintf("🎰 <b>Cards Dealt!</b> %s🚀\n"+
		"👤 <b>Player Hand</b>: %s\n"+
		"🏦 <b>Banker Hand</b>: %s\n"+
		"🎲 Calculating results... 🏆",
		testBadge(s), cards.FormatTotal(s.Hand.PlayerCards), cards.FormatTotal(s.Hand.BankerCards))}
}

// picksMessage reveals the target and every pick to the group.
func picksMessage(s *model.Session, o *Outcome, names map[int64]string) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🎰 <b>Results!</b> %s🚀\n", testBadge(s))
	fmt.Fprintf(&b, "🎯 <b>Target Number</b>: %d\n", o.Target)
	for _, id := range s.Players {
		rank, ok := s.CardChoices[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "👤 %s picked %s (Total: %d)\n", table.Mention(names[id]), cards.Symbol(rank), o.Totals[id])
	}
	b.WriteString("🎲 Calculating winners... 🏆")
	return notify.Message{Text: b.String()}
}

// playerUpdate is the private result sent to each seated player.
func playerUpdate(s *model.Session, o *Outcome, userID int64) notify.Message {
	var b strings.Builder
	b.WriteString("🎰 <b>Game Update</b> 🎲\n")
	if o.Mode == model.ModeInteractive {
		fmt.Fprintf(&b, "🎯 <b>Target Number</b>: %d\n", o.Target)
		if rank, ok := s.CardChoices[userID]; ok {
			fmt.Fprintf(&b, "👤 Your card: %s (Total: %d)\n", cards.Symbol(rank), o.Totals[userID])
		}
		fmt.Fprintf(&b, "💰 Your bet: %s", table.FormatAmount(s.BetAmount))
		return notify.Message{Text: b.String()}
	}

	fmt.Fprintf(&b, "👤 <b>Player Hand</b>: %s\n", cards.FormatTotal(s.Hand.PlayerCards))
	fmt.Fprintf(&b, "🏦 <b>Banker Hand</b>: %s\n", cards.FormatTotal(s.Hand.BankerCards))
	choice := "None"
	if bet, ok := s.Bets[userID]; ok {
		choice = strings.ToUpper(string(bet.Choice[:1])) + string(bet.Choice[1:])
	}
	fmt.Fprintf(&b, "💰 Your bet: <b>%s</b> (%s)", choice, table.FormatAmount(s.BetAmount))
	return notify.Message{Text: b.String()}
}

// summaryMessage closes the round in the group.
func summaryMessage(s *model.Session, o *Outcome, names map[int64]string) notify.Message {
	result := "No winners"
	switch {
	case o.Mode == model.ModeSimple:
		result = outcomeName(o.Baccarat) + " wins"
	case len(o.Winners) > 0:
		result = "Winners determined"
	}

	tags := "No winners"
	if len(o.Winners) > 0 {
		parts := make([]string, 0, len(o.Winners))
		for _, id := range o.Winners {
			parts = append(parts, table.Mention(names[id]))
		}
		tags = strings.Join(parts, ", ")
	}

	var b strings.Builder
	b.WriteString("🎰 <b>Game Over!</b> 🌟\n")
	fmt.Fprintf(&b, "🔥 <b>Result</b>: %s! 🏆\n", result)
	fmt.Fprintf(&b, "🎉 <b>Winners</b>: %s\n", tags)
	switch {
	case o.Mode == model.ModeInteractive && o.PrizeEach.IsPositive():
		fmt.Fprintf(&b, "🏆 <b>Prize</b>: %s ETH each\n", o.PrizeEach.StringFixed(4))
	case o.Refunded:
		b.WriteString("↩️ Nobody scored. Stakes refunded minus the house fee.\n")
	}
	b.WriteString("🚀 Ready for another round? Use /start!")
	return notify.Message{Text: b.String()}
}

func depositFailed(amount decimal.Decimal, support string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("❌ Your stake of %s could not be deposited, so you were removed from this round. "+
		"Top up your wallet and try again, or contact %s.", table.FormatAmount(amount), support)}
}

func walletMissing(support string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("❌ You won, but no wallet is registered for you. "+
		"Send /start here to create one and contact %s to claim your winnings.", support)}
}

func houseShort(amount decimal.Decimal, support string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("⚠️ Your payout of %s could not be sent right now. Contact %s to claim it.",
		table.FormatAmount(amount), support)}
}

func payoutSent(in Instruction, txHash string) notify.Message {
	what := "Payout"
	if in.Kind == model.TxKindRefund {
		what = "Refund"
	}
	return notify.Message{Text: fmt.Sprintf("✅ %s of %s sent!\nTx: <code>%s</code>", what, table.FormatAmount(in.Amount), txHash)}
}

func payoutFailed(in Instruction, support string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("❌ Your payout of %s failed on-chain. It will not be retried automatically. "+
		"Contact %s with this message.", table.FormatAmount(in.Amount), support)}
}
