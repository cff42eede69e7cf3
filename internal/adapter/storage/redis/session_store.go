package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SessionStore implements ports.SessionStore using Redis. Sessions are stored
// as JSON under their TTL and consumed with GETDEL so a session attributes at
// most one order.
type SessionStore struct {
	client *goredis.Client
	prefix string
}

// NewSessionStore creates a new Redis-backed attribution session store.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "session:",
	}
}

// Put stores an attribution session with the given TTL.
func (s *SessionStore) Put(ctx context.Context, session *domain.AttributionSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+session.SessionID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis session put: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes a session.
// Returns nil, nil when the session is absent or already consumed.
func (s *SessionStore) Consume(ctx context.Context, sessionID string) (*domain.AttributionSession, error) {
	data, err := s.client.GetDel(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis session consume: %w", err)
	}

	session := &domain.AttributionSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}
