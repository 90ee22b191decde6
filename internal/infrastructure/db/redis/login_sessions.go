package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// LoginSessionStore persists login sessions as JSON values with a TTL equal
// to the refresh-token lifetime. Expiry or deletion of the key invalidates
// every login/refresh token bound to the session.
type LoginSessionStore struct {
	client *redis.Client
}

func NewLoginSessionStore(client *redis.Client) *LoginSessionStore {
	return &LoginSessionStore{client: client}
}

func (s *LoginSessionStore) Create(ctx context.Context, ls *domain.LoginSession, ttl time.Duration) error {
	data, err := json.Marshal(ls)
	if err != nil {
		return fmt.Errorf("marshal login session: %w", err)
	}
	return s.client.Set(ctx, s.key(ls.ID), data, ttl).Err()
}

func (s *LoginSessionStore) Get(ctx context.Context, id string) (*domain.LoginSession, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrLoginSessionNotFound
		}
		return nil, err
	}

	var ls domain.LoginSession
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("unmarshal login session: %w", err)
	}
	return &ls, nil
}

// SetRefreshTokenID rotates the stored refresh jti. KeepTTL preserves the
// session's remaining lifetime: rotation never extends it.
func (s *LoginSessionStore) SetRefreshTokenID(ctx context.Context, id, refreshTokenID string) error {
	ls, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ls.RefreshTokenID = refreshTokenID

	data, err := json.Marshal(ls)
	if err != nil {
		return fmt.Errorf("marshal login session: %w", err)
	}
	return s.client.Set(ctx, s.key(id), data, redis.KeepTTL).Err()
}

func (s *LoginSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *LoginSessionStore) key(id string) string {
	return "login_session:" + id
}
