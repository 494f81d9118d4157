package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTracker keeps the per-(user, session) asked-question set as a
// Redis set with a bounded lifetime. Repeat avoidance only; losing the
// set is harmless.
type SessionTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionTracker(client *redis.Client, ttl time.Duration) *SessionTracker {
	return &SessionTracker{client: client, ttl: ttl}
}

func (t *SessionTracker) Asked(ctx context.Context, userID, sessionID string) ([]int64, error) {
	members, err := t.client.SMembers(ctx, t.key(userID, sessionID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *SessionTracker) MarkAsked(ctx context.Context, userID, sessionID string, questionID int64) error {
	key := t.key(userID, sessionID)
	if err := t.client.SAdd(ctx, key, strconv.FormatInt(questionID, 10)).Err(); err != nil {
		return err
	}
	return t.client.Expire(ctx, key, t.ttl).Err()
}

func (t *SessionTracker) key(userID, sessionID string) string {
	return "quiz:session:" + userID + ":" + sessionID + ":asked"
}
