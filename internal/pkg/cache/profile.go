// Package cache keeps recently seen user profiles in Redis so group
// messages can tag players without a database round trip.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vvv-blip/baccarat-bot/internal/config"
	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// keyUserProfile is the Redis key of a cached profile.
const keyUserProfile = "user:%d:profile"

// ErrMiss is returned when a profile is not cached.
var ErrMiss = errors.New("profile not cached")

// ProfileCache stores model.User values as JSON with a TTL.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg *config.RedisConfig) (*ProfileCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return NewWithClient(client, cfg.ProfileTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached profile or ErrMiss.
func (c *ProfileCache) Get(ctx context.Context, userID int64) (*model.User, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(keyUserProfile, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return &user, nil
}

// Set caches the profile for the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(keyUserProfile, user.TelegramID), data, c.ttl).Err()
}

// Ping checks the connection. Used by the /healthz endpoint.
func (c *ProfileCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *ProfileCache) Close() error {
	return c.client.Close()
}
