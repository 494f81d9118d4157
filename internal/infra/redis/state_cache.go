package redis

import (
	"context"
	"encoding/json"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// stateCacheSchema versions the cache envelope. Bump it whenever the
// serialized shape changes; readers treat a mismatch as a miss so cache
// and store can never silently diverge in shape.
const stateCacheSchema = 1

type cachedState struct {
	Schema int              `json:"schema"`
	State  domain.UserState `json:"state"`
}

// StateCache is the expiring Redis cache in front of the user-state
// store.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{client: client, ttl: ttl}
}

func (c *StateCache) GetState(ctx context.Context, userID string) (domain.UserState, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return domain.UserState{}, false, nil
	}
	if err != nil {
		return domain.UserState{}, false, err
	}

	var envelope cachedState
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Schema != stateCacheSchema {
		return domain.UserState{}, false, nil
	}
	return envelope.State, true, nil
}

func (c *StateCache) SetState(ctx context.Context, state domain.UserState) error {
	raw, err := json.Marshal(cachedState{Schema: stateCacheSchema, State: state})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(state.UserID), raw, c.ttl).Err()
}

func (c *StateCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *StateCache) key(userID string) string {
	return "quiz:user:" + userID + ":state"
}
