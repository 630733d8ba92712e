package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvv-blip/baccarat-bot/internal/game/cards"
	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
)

// CallbackPrefix is the prefix for all game callback data.
const CallbackPrefix = "bac_"

// Callback actions.
const (
	ActionStart       = "start"
	ActionMode        = "mode"
	ActionSetBet      = "setbet"
	ActionFreePlay    = "free"
	ActionTestMode    = "test"
	ActionJoin        = "join"
	ActionBet         = "bet"
	ActionCard        = "card"
	ActionRules       = "rules"
	ActionStats       = "stats"
	ActionWallet      = "wallet"
	ActionHowTo       = "howto"
	ActionTutorial    = "tutorial"
	paramSeparator    = ":"
	actionSeparator   = "_"
	maxCallbackLength = 64
)

// EncodeCallback encodes an action and its parameters into callback data.
func EncodeCallback(action string, params ...string) string {
	if len(params) == 0 {
		return CallbackPrefix + action
	}
	return CallbackPrefix + action + actionSeparator + strings.Join(params, paramSeparator)
}

// DecodeCallback decodes callback data into action and parameters.
func DecodeCallback(data string) (action string, params []string) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, CallbackPrefix) || len(data) > maxCallbackLength {
		return "", nil
	}
	content := strings.TrimPrefix(data, CallbackPrefix)
	parts := strings.SplitN(content, actionSeparator, 2)
	action = parts[0]
	if len(parts) > 1 && parts[1] != "" {
		params = strings.Split(parts[1], paramSeparator)
	}
	return action, params
}

// RoundTarget identifies the session a private button belongs to.
type RoundTarget struct {
	Value  string
	ChatID int64
	Ref    string
}

// ParseRoundTarget reads [value, chatID, ref] button parameters.
func ParseRoundTarget(params []string) (RoundTarget, error) {
	if len(params) != 3 {
		return RoundTarget{}, fmt.Errorf("expected 3 callback params, got %d", len(params))
	}
	chatID, err := strconv.ParseInt(params[1], 10, 64)
	if err != nil {
		return RoundTarget{}, fmt.Errorf("invalid chat id %q: %w", params[1], err)
	}
	return RoundTarget{Value: params[0], ChatID: chatID, Ref: params[2]}, nil
}

func roundButton(text, action, value string, s *model.Session) notify.Button {
	return notify.Button{
		Text: text,
		Data: EncodeCallback(action, value, strconv.FormatInt(s.ChatID, 10), RoundRef(s)),
	}
}

// PanelKeyboard returns the group panel buttons for the session's phase.
func PanelKeyboard(s *model.Session) [][]notify.Button {
	info := []notify.Button{
		{Text: "📜 Rules", Data: EncodeCallback(ActionRules)},
		{Text: "📊 Stats", Data: EncodeCallback(ActionStats)},
	}

	if s == nil || s.Status == model.StatusSettled {
		return [][]notify.Button{
			{{Text: "🎮 Start Game", Data: EncodeCallback(ActionStart)}},
			info,
		}
	}

	switch {
	case s.Status == model.StatusWaiting && s.Mode == "":
		return [][]notify.Button{
			{
				{Text: "🃏 Simple Mode", Data: EncodeCallback(ActionMode, string(model.ModeSimple))},
				{Text: "🎯 Interactive Mode", Data: EncodeCallback(ActionMode, string(model.ModeInteractive))},
			},
			info,
		}
	case s.Status == model.StatusWaiting && !s.BetSet:
		return [][]notify.Button{
			{
				{Text: "💰 Set Bet", Data: EncodeCallback(ActionSetBet)},
				{Text: "🆓 Free Play", Data: EncodeCallback(ActionFreePlay)},
			},
			{{Text: "🧪 Test Mode", Data: EncodeCallback(ActionTestMode)}},
			info,
		}
	case s.Status == model.StatusWaiting:
		return [][]notify.Button{
			{{Text: "✋ Join Game", Data: EncodeCallback(ActionJoin, RoundRef(s))}},
			info,
		}
	default:
		return [][]notify.Button{info}
	}
}

// BetKeyboard returns the private bet buttons for the session's mode.
func BetKeyboard(s *model.Session) [][]notify.Button {
	if s.Mode == model.ModeInteractive {
		return [][]notify.Button{
			{roundButton("✅ Confirm Bet", ActionBet, string(model.ChoiceConfirm), s)},
		}
	}
	return [][]notify.Button{
		{
			roundButton("👤 Player", ActionBet, string(model.ChoicePlayer), s),
			roundButton("🏦 Banker", ActionBet, string(model.ChoiceBanker), s),
		},
		{roundButton("🤝 Tie", ActionBet, string(model.ChoiceTie), s)},
	}
}

// CardKeyboard returns the 13 card buttons in rows of 4, 4 and 5.
func CardKeyboard(s *model.Session) [][]notify.Button {
	rows := [][]notify.Button{{}, {}, {}}
	for i, sym := range cards.Symbols {
		row := i / 4
		if row > 2 {
			row = 2
		}
		rows[row] = append(rows[row], roundButton(sym, ActionCard, sym, s))
	}
	return rows
}

// PrivateMenuKeyboard is shown on /start in a private chat.
func PrivateMenuKeyboard(support string) [][]notify.Button {
	rows := [][]notify.Button{
		{
			{Text: "💼 View Wallet", Data: EncodeCallback(ActionWallet)},
			{Text: "❓ How to Play", Data: EncodeCallback(ActionHowTo)},
		},
		{{Text: "🎯 Interactive Tutorial", Data: EncodeCallback(ActionTutorial)}},
	}
	if handle := strings.TrimPrefix(support, "@"); handle != "" {
		rows = append(rows, []notify.Button{{Text: "📞 Support", URL: "https://t.me/" + handle}})
	}
	return rows
}
