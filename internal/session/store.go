package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a half-finished conversation survives.
const DefaultTTL = 30 * time.Minute

// State is one multi-step conversation record: which step the user is
// on ("awaiting_phone", "admin_product_title", ...) plus the data
// collected so far. Keeping it in Redis, keyed by (tenant, user),
// survives restarts and load balancing across instances.
type State struct {
	Step string            `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func key(tenantID, userID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, userID)
}

// Put stores the state and refreshes its TTL.
func (s *Store) Put(ctx context.Context, tenantID, userID string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(tenantID, userID), data, s.ttl).Err()
}

// Get returns the state, or nil when no conversation is in progress.
func (s *Store) Get(ctx context.Context, tenantID, userID string) (*State, error) {
	data, err := s.client.Get(ctx, key(tenantID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Clear ends the conversation.
func (s *Store) Clear(ctx context.Context, tenantID, userID string) error {
	return s.client.Del(ctx, key(tenantID, userID)).Err()
}
