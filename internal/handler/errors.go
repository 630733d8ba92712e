// Package handler provides Telegram bot command and button handlers.
package handler

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/lock"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

const retryText = "⚠️ Something went wrong on our side. Please try again in a moment."

// userText maps an operation error to the reply shown to the user.
func userText(err error) string {
	switch {
	case errors.Is(err, table.ErrInvalidAmount):
		return "❌ Invalid amount. Send a positive number no larger than the table limit, e.g. 0.01"
	case errors.Is(err, table.ErrInvalidCard), errors.Is(err, table.ErrInvalidChoice), errors.Is(err, table.ErrInvalidMode):
		return "❌ That option is not available."
	case errors.Is(err, table.ErrInvalidSupport):
		return "❌ Invalid username. Use @handle with 5-32 letters, digits or underscores."
	case errors.Is(err, table.ErrAlreadyRunning):
		return "🎲 A game is already in progress in this chat."
	case errors.Is(err, table.ErrAlreadyJoined):
		return "✋ You're already in this game."
	case errors.Is(err, table.ErrSessionFull):
		return "🚫 The game is full."
	case errors.Is(err, table.ErrNotAcceptingPlayers):
		return "🚫 This game is not accepting players right now."
	case errors.Is(err, table.ErrUnknownPlayer):
		return "🚫 You are not playing in this game."
	case errors.Is(err, table.ErrDuplicateBet):
		return "✅ Your bet is already placed."
	case errors.Is(err, table.ErrDuplicateChoice):
		return "✅ You already picked a card."
	case errors.Is(err, table.ErrNotCreator):
		return "🚫 Only the game creator can do that."
	case errors.Is(err, table.ErrStaleRound):
		return "⌛ This button belongs to a finished game."
	case errors.Is(err, table.ErrAlreadyConfigured):
		return "⚙️ The game is already configured."
	case errors.Is(err, table.ErrModeRequired):
		return "🎲 Choose a game mode first."
	case errors.Is(err, table.ErrWrongPhase), errors.Is(err, table.ErrIllegalTransition):
		return "⌛ That's not possible at this stage of the game."
	case errors.Is(err, table.ErrNoSession):
		return "🎲 No game here. Use /start to open one."
	case errors.Is(err, table.ErrWalletRequired):
		return "💼 Paid games need a wallet. Open a private chat with me and send /start."
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ The table is busy. Please try again."
	case errors.Is(err, repository.ErrVersionConflict):
		return "⏳ The game changed while you were acting. Please try again."
	case errors.Is(err, repository.ErrPersistence), errors.Is(err, ledger.ErrLedger):
		log.Error().Err(err).Msg("Operation failed")
		return retryText
	default:
		log.Error().Err(err).Msg("Unexpected operation error")
		return retryText
	}
}
