// Package api serves the ops HTTP endpoints: health, read-only table
// status and the Telegram webhook.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// SessionReader loads a chat's session.
type SessionReader interface {
	Session(ctx context.Context, chatID int64) (*model.Session, error)
}

// ActiveCounter counts tables with a round in progress.
type ActiveCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// UpdateProcessor handles a Telegram update.
type UpdateProcessor interface {
	ProcessUpdate(u tele.Update)
}

// secretHeader carries the token registered with setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Options configures the router. Updates may be nil when the bot polls.
// Webhook requests are accepted only when they carry WebhookSecret.
type Options struct {
	Release       bool
	Checks        map[string]Check
	Games         SessionReader
	Active        ActiveCounter
	Updates       UpdateProcessor
	WebhookSecret string
}

type handler struct {
	checks  map[string]Check
	games   SessionReader
	active  ActiveCounter
	updates UpdateProcessor
	secret  string
}

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := &handler{
		checks:  opts.Checks,
		games:   opts.Games,
		active:  opts.Active,
		updates: opts.Updates,
		secret:  opts.WebhookSecret,
	}

	r.GET("/healthz", h.health)
	r.GET("/games/:chat_id", h.game)
	if opts.Active != nil {
		r.GET("/stats", h.stats)
	}
	if opts.Updates != nil {
		r.POST("/webhook", h.webhook)
	}
	return r
}

// requestLogger logs requests through zerolog instead of gin's writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

func (h *handler) health(c *gin.Context) {
	status := gin.H{}
	healthy := true
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		writeJSON(c, http.StatusServiceUnavailable, status, "unhealthy")
		return
	}
	success(c, status)
}

func (h *handler) stats(c *gin.Context) {
	n, err := h.active.CountActive(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count active games")
		fail(c, http.StatusInternalServerError, "failed to count games")
		return
	}
	success(c, gin.H{"active_games": n})
}

// gameView is the public part of a session. Card picks and the interactive
// target stay hidden while a round runs.
type gameView struct {
	ChatID    int64        `json:"chat_id"`
	RoundID   string       `json:"round_id"`
	Status    model.Status `json:"status"`
	Mode      model.Mode   `json:"mode,omitempty"`
	BetAmount string       `json:"bet_amount"`
	Free      bool         `json:"free"`
	TestMode  bool         `json:"test_mode"`
	Players   []int64      `json:"players"`
	Capacity  int          `json:"capacity"`
	Bets      int          `json:"bets"`
	Picks     int          `json:"picks"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (h *handler) game(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid chat id")
		return
	}

	s, err := h.games.Session(c.Request.Context(), chatID)
	if errors.Is(err, table.ErrNoSession) {
		fail(c, http.StatusNotFound, "no game in this chat")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to load session")
		fail(c, http.StatusInternalServerError, "failed to load game")
		return
	}

	players := s.Players
	if players == nil {
		players = []int64{}
	}
	success(c, gameView{
		ChatID:    s.ChatID,
		RoundID:   s.RoundID,
		Status:    s.Status,
		Mode:      s.Mode,
		BetAmount: s.BetAmount.String(),
		Free:      s.IsFree(),
		TestMode:  s.TestMode,
		Players:   players,
		Capacity:  s.Capacity(),
		Bets:      len(s.Bets),
		Picks:     len(s.CardChoices),
		UpdatedAt: s.UpdatedAt,
	})
}

func (h *handler) webhook(c *gin.Context) {
	got := c.GetHeader(secretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		log.Warn().Str("client_ip", c.ClientIP()).Msg("Rejected webhook request with a bad secret token")
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var u tele.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, "invalid update")
		return
	}
	h.updates.ProcessUpdate(u)
	c.Status(http.StatusOK)
}
