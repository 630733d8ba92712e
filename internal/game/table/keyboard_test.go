package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

func TestCallbackCodec(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params []string
	}{
		{"no params", ActionJoin, nil},
		{"one param", ActionMode, []string{"simple"}},
		{"round target", ActionCard, []string{"10", "-1001234567890", "1a2b3c4d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := EncodeCallback(tt.action, tt.params...)
			assert.LessOrEqual(t, len(data), 64)

			action, params := DecodeCallback(data)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.params, params)

			action, params = DecodeCallback("\f" + data)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.params, params)
		})
	}

	action, params := DecodeCallback("shop_buy_1")
	assert.Empty(t, action)
	assert.Nil(t, params)
}

func TestParseRoundTarget(t *testing.T) {
	target, err := ParseRoundTarget([]string{"banker", "-1001", "abcd1234"})
	require.NoError(t, err)
	assert.Equal(t, RoundTarget{Value: "banker", ChatID: -1001, Ref: "abcd1234"}, target)

	_, err = ParseRoundTarget([]string{"banker", "x", "abcd1234"})
	assert.Error(t, err)
	_, err = ParseRoundTarget([]string{"banker"})
	assert.Error(t, err)
}

func TestKeyboards(t *testing.T) {
	s := &model.Session{ChatID: -1001234567890, RoundID: "1a2b3c4d-0000-0000-0000-000000000000", Status: model.StatusWaiting}

	kb := PanelKeyboard(s)
	action, params := DecodeCallback(kb[0][0].Data)
	assert.Equal(t, ActionMode, action)
	assert.Equal(t, []string{"simple"}, params)

	s.Mode = model.ModeSimple
	kb = PanelKeyboard(s)
	action, _ = DecodeCallback(kb[0][0].Data)
	assert.Equal(t, ActionSetBet, action)

	s.BetSet = true
	kb = PanelKeyboard(s)
	action, params = DecodeCallback(kb[0][0].Data)
	assert.Equal(t, ActionJoin, action)
	assert.Equal(t, []string{"1a2b3c4d"}, params)

	bets := BetKeyboard(s)
	require.Len(t, bets, 2)
	_, params = DecodeCallback(bets[1][0].Data)
	target, err := ParseRoundTarget(params)
	require.NoError(t, err)
	assert.Equal(t, "tie", target.Value)
	assert.Equal(t, s.ChatID, target.ChatID)

	s.Mode = model.ModeInteractive
	assert.Len(t, BetKeyboard(s), 1)

	cardsKB := CardKeyboard(s)
	require.Len(t, cardsKB, 3)
	assert.Len(t, cardsKB[0], 4)
	assert.Len(t, cardsKB[1], 4)
	assert.Len(t, cardsKB[2], 5)
	for _, row := range cardsKB {
		for _, b := range row {
			assert.LessOrEqual(t, len(b.Data), 64)
		}
	}

	menu := PrivateMenuKeyboard("@helpdesk_team")
	assert.Equal(t, "https://t.me/helpdesk_team", menu[len(menu)-1][0].URL)
}
