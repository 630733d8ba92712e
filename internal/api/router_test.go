package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

type stubGames map[int64]*model.Session

func (s stubGames) Session(_ context.Context, chatID int64) (*model.Session, error) {
	if chatID == 500 {
		return nil, errors.New("connection reset")
	}
	sess, ok := s[chatID]
	if !ok {
		return nil, table.ErrNoSession
	}
	return sess, nil
}

type countActive func() (int64, error)

func (f countActive) CountActive(context.Context) (int64, error) { return f() }

type updateSpy struct{ got []tele.Update }

func (u *updateSpy) ProcessUpdate(up tele.Update) { u.got = append(u.got, up) }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out Body
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	t.Run("all up", func(t *testing.T) {
		r := NewRouter(Options{Release: true, Checks: map[string]Check{
			"postgres": func(context.Context) error { return nil },
		}, Games: stubGames{}})

		rec, body := do(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"postgres": "up"}, body.Data)
	})

	t.Run("one down", func(t *testing.T) {
		r := NewRouter(Options{Release: true, Checks: map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("refused") },
		}, Games: stubGames{}})

		rec, body := do(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", body.Msg)
		assert.Equal(t, map[string]any{"postgres": "up", "redis": "down"}, body.Data)
	})
}

func TestGame(t *testing.T) {
	games := stubGames{
		-100: {
			ChatID:       -100,
			RoundID:      "round-1",
			Status:       model.StatusCardSelection,
			Mode:         model.ModeInteractive,
			BetAmount:    decimal.RequireFromString("0.25"),
			Players:      []int64{1, 2},
			Bets:         map[int64]model.Bet{1: {Choice: model.ChoiceConfirm}, 2: {Choice: model.ChoiceConfirm}},
			CardChoices:  map[int64]int{1: 7},
			TargetNumber: 9,
		},
	}
	r := NewRouter(Options{Release: true, Games: games})

	t.Run("found", func(t *testing.T) {
		rec, body := do(t, r, http.MethodGet, "/games/-100", "")
		require.Equal(t, http.StatusOK, rec.Code)

		data := body.Data.(map[string]any)
		assert.Equal(t, "card_selection", data["status"])
		assert.Equal(t, "0.25", data["bet_amount"])
		assert.Equal(t, float64(4), data["capacity"])
		assert.Equal(t, float64(2), data["bets"])
		assert.Equal(t, float64(1), data["picks"])
		assert.NotContains(t, data, "target_number")
		assert.NotContains(t, data, "card_choices")
	})

	t.Run("missing", func(t *testing.T) {
		rec, _ := do(t, r, http.MethodGet, "/games/-200", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec, _ := do(t, r, http.MethodGet, "/games/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		rec, _ := do(t, r, http.MethodGet, "/games/500", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStats(t *testing.T) {
	r := NewRouter(Options{Release: true, Games: stubGames{}, Active: countActive(func() (int64, error) { return 3, nil })})
	rec, body := do(t, r, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"active_games": float64(3)}, body.Data)

	r = NewRouter(Options{Release: true, Games: stubGames{}, Active: countActive(func() (int64, error) { return 0, errors.New("down") })})
	rec, _ = do(t, r, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func postUpdate(t *testing.T, h http.Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	const secret = "hook_secret-1"
	const update = `{"update_id": 77, "message": {"message_id": 1, "text": "/start"}}`

	t.Run("forwards updates", func(t *testing.T) {
		spy := &updateSpy{}
		r := NewRouter(Options{Release: true, Games: stubGames{}, Updates: spy, WebhookSecret: secret})

		rec := postUpdate(t, r, secret, update)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, spy.got, 1)
		assert.Equal(t, 77, spy.got[0].ID)
		assert.Equal(t, "/start", spy.got[0].Message.Text)
	})

	t.Run("rejects missing or wrong secret", func(t *testing.T) {
		spy := &updateSpy{}
		r := NewRouter(Options{Release: true, Games: stubGames{}, Updates: spy, WebhookSecret: secret})

		for _, got := range []string{"", "guess", secret + "x"} {
			rec := postUpdate(t, r, got, update)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "secret %q", got)
		}
		assert.Empty(t, spy.got)
	})

	t.Run("rejects everything without a configured secret", func(t *testing.T) {
		spy := &updateSpy{}
		r := NewRouter(Options{Release: true, Games: stubGames{}, Updates: spy})

		rec := postUpdate(t, r, "", update)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, spy.got)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		spy := &updateSpy{}
		r := NewRouter(Options{Release: true, Games: stubGames{}, Updates: spy, WebhookSecret: secret})

		rec := postUpdate(t, r, secret, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, spy.got)
	})

	t.Run("absent when polling", func(t *testing.T) {
		r := NewRouter(Options{Release: true, Games: stubGames{}})
		rec := postUpdate(t, r, secret, `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
