package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/vvv-blip/baccarat-bot/internal/config"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// SeenUsers remembers users met in a whitelisted group so they may use the
// bot privately to manage their wallet.
type SeenUsers struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewSeenUsers creates an empty set.
func NewSeenUsers() *SeenUsers {
	return &SeenUsers{users: make(map[int64]struct{})}
}

// Add marks userID as seen.
func (s *SeenUsers) Add(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
}

// Has reports whether userID was seen.
func (s *SeenUsers) Has(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

// WhitelistMiddleware drops updates from chats outside the whitelist.
// Private chats are allowed for users seen in a whitelisted group, or for
// everyone when the whitelist is empty.
func WhitelistMiddleware(cfg *config.Config, seen *SeenUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || seen.Has(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not seen in a whitelisted group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			seen.Add(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users that are not bot owners.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("🚫 This command is for bot owners only.")
			}

			return next(c)
		}
	}
}

// ProfileRecorder stores the sender's profile as seen in an update.
type ProfileRecorder interface {
	EnsureUser(ctx context.Context, u *model.User) error
}

// TrackUserMiddleware records every sender so group messages can tag players.
// Failures are logged and never block the update.
func TrackUserMiddleware(profiles ProfileRecorder) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if sender := c.Sender(); sender != nil && !sender.IsBot {
				u := &model.User{
					TelegramID: sender.ID,
					Username:   sender.Username,
					FirstName:  sender.FirstName,
					LastName:   sender.LastName,
				}
				if err := profiles.EnsureUser(context.Background(), u); err != nil {
					log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to record user profile")
				}
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware turns a handler panic into a logged error.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = nil
				}
			}()
			return next(c)
		}
	}
}
