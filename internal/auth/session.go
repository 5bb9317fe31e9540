package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/healthfin/healthfin/internal/access"
)

// SessionStore keeps caller identities in Redis keyed by session ID.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Load returns the identity stored for id.
func (s *SessionStore) Load(ctx context.Context, id string) (access.UserContext, error) {
	raw, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return access.UserContext{}, ErrSessionNotFound
		}
		return access.UserContext{}, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return access.UserContext{}, fmt.Errorf("decode session: %w", err)
	}
	if payload.UserID == "" {
		return access.UserContext{}, ErrSessionNotFound
	}
	return payload.userContext(), nil
}

// Save stores user under a new session ID and returns the ID.
func (s *SessionStore) Save(ctx context.Context, user access.UserContext) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(sessionPayload{
		UserID:      user.UserID,
		Role:        user.Role,
		Facilities:  user.AccessibleFacilityIDs,
		Permissions: user.Permissions,
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKey(id), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func redisKey(id string) string {
	return "session:" + id
}
