package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

const defaultStateTTL = 10 * time.Minute

// OAuthStateStore keeps the PKCE verifier for each pending OAuth redirect.
// Key format: oauth:state:<state>
type OAuthStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.OAuthStateStore = (*OAuthStateStore)(nil)

// NewOAuthStateStore wraps client; entries expire after ttl.
func NewOAuthStateStore(client *redis.Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

// Save records the verifier for state. A state that already exists is
// rejected so that a collision never overwrites a pending flow.
func (s *OAuthStateStore) Save(ctx context.Context, state, verifier string) error {
	ok, err := s.client.SetNX(ctx, s.key(state), verifier, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	if !ok {
		return fmt.Errorf("save oauth state: %w", domain.ErrOAuthState)
	}
	return nil
}

// Consume returns and deletes the verifier for state. Unknown or expired
// states yield domain.ErrOAuthState.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", domain.ErrOAuthState
	}
	verifier, err := s.client.GetDel(ctx, s.key(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrOAuthState
		}
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return verifier, nil
}

func (s *OAuthStateStore) key(state string) string {
	return "oauth:state:" + state
}
