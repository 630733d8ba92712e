package table

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
)

const title = "🎰 <b>Baccarat Table</b>"

// FormatAmount renders a stake in ETH.
func FormatAmount(d decimal.Decimal) string {
	return d.String() + " ETH"
}

func modeName(m model.Mode) string {
	switch m {
	case model.ModeSimple:
		return "Simple"
	case model.ModeInteractive:
		return "Interactive"
	default:
		return "Not chosen"
	}
}

func testBadge(s *model.Session) string {
	if s.TestMode {
		return " 🧪 Test Mode!"
	}
	return ""
}

// StatusPanel is the pinned group message describing the session.
// It never reveals the target number.
func StatusPanel(s *model.Session) notify.Message {
	var b strings.Builder
	b.WriteString(title + testBadge(s) + "\n")

	switch {
	case s.Status == model.StatusWaiting && s.Mode == "":
		b.WriteString("🔥 Pick a game mode to begin!\n")
	case s.Status == model.StatusWaiting && !s.BetSet:
		fmt.Fprintf(&b, "🎲 <b>Mode</b>: %s\n", modeName(s.Mode))
		b.WriteString("💰 Set a bet or start a free game.\n")
	case s.Status == model.StatusSettingBet:
		fmt.Fprintf(&b, "🎲 <b>Mode</b>: %s\n", modeName(s.Mode))
		b.WriteString("✍️ Waiting for the creator to type the bet amount...\n")
	case s.Status == model.StatusWaiting:
		phase := "Betting"
		if s.IsFree() {
			phase = "Free Play"
		}
		fmt.Fprintf(&b, "🔥 <b>%s Mode!</b> (%s)\n", phase, modeName(s.Mode))
		fmt.Fprintf(&b, "💰 <b>Bet</b>: %s\n", FormatAmount(s.BetAmount))
		fmt.Fprintf(&b, "👥 <b>Players</b>: %d/%d\n", len(s.Players), s.Capacity())
		b.WriteString("🎲 Join now!")
	case s.Status == model.StatusBetting:
		fmt.Fprintf(&b, "💰 <b>Bet</b>: %s\n", FormatAmount(s.BetAmount))
		fmt.Fprintf(&b, "📝 <b>Bets placed</b>: %d/%d\n", len(s.Bets), len(s.Players))
	case s.Status == model.StatusCardSelection:
		fmt.Fprintf(&b, "🃏 <b>Cards picked</b>: %d/%d\n", len(s.CardChoices), len(s.Players))
		b.WriteString("🎯 Target number is secret until everyone picks.")
	default:
		b.WriteString("🎲 Dealing...")
	}

	return notify.Message{Text: b.String(), Keyboard: PanelKeyboard(s)}
}

// ModeSelected announces the chosen mode.
func ModeSelected(s *model.Session) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("%s\n🚀 <b>%s Mode Selected!</b>\nSet a bet amount or start a free game.",
			title, modeName(s.Mode)),
	}
}

// AskBetAmount prompts the creator to type a stake.
func AskBetAmount(max decimal.Decimal) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("💰 Reply with the bet amount in ETH (max %s), e.g. <code>0.01</code>", max.String()),
	}
}

// BetPrompt is the private message asking a seated player to bet.
func BetPrompt(s *model.Session) notify.Message {
	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "💰 <b>Amount</b>: %s\n", FormatAmount(s.BetAmount))
	if s.Mode == model.ModeInteractive {
		b.WriteString("🔥 You're in the game! Confirm your bet.\n")
		b.WriteString("🎯 You'll pick a card once everyone has confirmed.")
	} else {
		b.WriteString("🔥 You're in the game! Choose your bet:\n")
		b.WriteString("👤 <b>Player</b>: pays 2x\n")
		b.WriteString("🏦 <b>Banker</b>: pays 1.95x\n")
		b.WriteString("🤝 <b>Tie</b>: pays 9x")
	}
	return notify.Message{Text: b.String(), Keyboard: BetKeyboard(s)}
}

// GameReady tells the group every seat is taken.
func GameReady(s *model.Session) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("🎮 <b>Game Ready!</b> %d players joined! Check your private chat to bet. 🃏", len(s.Players)),
	}
}

// BetAccepted confirms a bet to the bettor.
func BetAccepted(s *model.Session, choice model.Choice) string {
	next := "cards to be dealt"
	if s.Mode == model.ModeInteractive {
		next = "card selection"
	}
	if choice == model.ChoiceConfirm {
		return fmt.Sprintf("✅ Bet placed for %s! Please wait for %s...", FormatAmount(s.BetAmount), next)
	}
	return fmt.Sprintf("✅ Bet placed on %s for %s! Please wait for %s...",
		choiceName(choice), FormatAmount(s.BetAmount), next)
}

func choiceName(c model.Choice) string {
	switch c {
	case model.ChoicePlayer:
		return "Player"
	case model.ChoiceBanker:
		return "Banker"
	case model.ChoiceTie:
		return "Tie"
	default:
		return "None"
	}
}

// SelectionOpened tells the group that card picks are open.
func SelectionOpened(s *model.Session, seconds int) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("🎮 <b>Bets Placed!</b> %d players ready! 🃏\n"+
			"🔥 Now picking cards (target number is secret until all choose)!\n⏰ %d seconds to choose.",
			len(s.Players), seconds),
	}
}

// CardPrompt is the private card picker.
func CardPrompt(s *model.Session) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("%s\n🔥 Choose your card (target number is secret):\n"+
			"💰 Your bet: %s\n🃏 Pick one card to get closest to the target!",
			title, FormatAmount(s.BetAmount)),
		Keyboard: CardKeyboard(s),
	}
}

// CardAccepted confirms a pick to the player.
func CardAccepted(rank int) string {
	return fmt.Sprintf("✅ Card chosen: %s! Waiting for other players...", cards.Symbol(rank))
}

// SelectionTimedOut tells the group the round was abandoned.
func SelectionTimedOut() notify.Message {
	return notify.Message{Text: "⏰ <b>Time's up!</b> Not everyone picked a card. The game was cancelled. Use /start to play again."}
}

// Cancelled tells the group the creator abandoned the round.
func Cancelled() notify.Message {
	return notify.Message{Text: "🛑 Game cancelled. Use /start to open a new one."}
}

// Reset tells the group an owner cleared the table.
func Reset() notify.Message {
	return notify.Message{Text: "♻️ Game reset. Use /start to open a new one."}
}

// Rules is the group rules text.
func Rules() notify.Message {
	return notify.Message{Text: title + "\n" +
		"<b>Simple mode</b>: bet on Player, Banker or Tie. Two cards each, a third by the standard tableau. " +
		"Player pays 2x, Banker 1.95x, Tie 9x.\n" +
		"<b>Interactive mode</b>: everyone stakes the same amount, then privately picks a card. " +
		"A secret target from 1 to 9 is drawn; the card value closest to it wins the pool minus a 5% house fee. " +
		"Ties split the prize. If every pick is worth 0, stakes are refunded minus the fee.\n" +
		"Card values: A = 1, 2-9 face value, 10/J/Q/K = 0.\n" +
		"Paid games need a funded wallet: open a private chat with the bot and send /start."}
}

// HowToPlay is the private walkthrough.
func HowToPlay() notify.Message {
	return notify.Message{Text: "❓ <b>How to Play</b>\n" +
		"1. Send /start here to create your wallet and fund it with Sepolia ETH.\n" +
		"2. In a group, press Start Game, pick a mode and a bet.\n" +
		"3. Press Join Game. When every seat is taken you get a private bet prompt.\n" +
		"4. Winnings are sent to your wallet after the round."}
}

// Tutorial explains interactive mode step by step.
func Tutorial() notify.Message {
	return notify.Message{Text: "🎯 <b>Interactive Tutorial</b>\n" +
		"Everyone confirms the same stake. A secret target between 1 and 9 is drawn.\n" +
		"You pick one card privately within 30 seconds. Your total is the card's baccarat value.\n" +
		"Example: target 7, you pick 8 (distance 1), a rival picks 5 (distance 2). You win.\n" +
		"Pool = stake x players, the house keeps 5%, the rest is split between the closest picks."}
}

// Mention renders a user tag for group messages.
func Mention(name string) string {
	return "@" + html.EscapeString(name)
}
