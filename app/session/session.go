// Package session implements the server-side session store. Each session is
// an opaque token held by the client in an httpOnly cookie; the token maps to
// the authenticated identity in Redis with a sliding TTL.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bugsage/bugsage/config"
	"github.com/bugsage/bugsage/internal/types"
)

const keyPrefix = "session:"

// Data is the identity record stored per session.
type Data struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// NewRedisClient creates a Redis client from application configuration and
// verifies connectivity.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Repositories.Redis.Host, cfg.Repositories.Redis.Port),
		Password: cfg.Repositories.Redis.Password,
		DB:       cfg.Repositories.Redis.DB,
	}

	// TLS when a password is set, matching managed Redis deployments.
	if cfg.Repositories.Redis.Password != "" {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

type Store struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		client: client,
		ttl:    ttl,
	}
}

// Create establishes a new session and returns its opaque token.
func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	token := uuid.NewString()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.DebugContext(ctx, "Session created", slog.Int64("user_id", data.UserID))
	return token, nil
}

// Get resolves a token to its identity record and refreshes the TTL.
// Returns types.ErrUnauthenticated for unknown or expired tokens.
func (s *Store) Get(ctx context.Context, token string) (*Data, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	// Sliding expiry: active sessions stay alive.
	if err := s.client.Expire(ctx, keyPrefix+token, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh session TTL", slog.Any("error", err))
	}

	return &data, nil
}

// Destroy removes a session. Destroying a nonexistent session is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
