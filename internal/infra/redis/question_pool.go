package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionSource is the backing catalog the cached bank fills from.
type QuestionSource interface {
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error)
}

// CachedQuestionBank caches per-difficulty id pools as Redis lists:
// RPUSH quiz:pool:{difficulty} {id...} with a jittered TTL. Cache
// misses fall back to the source behind a singleflight gate.
type CachedQuestionBank struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCachedQuestionBank(client *redis.Client, source QuestionSource, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *CachedQuestionBank) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	return b.source.QuestionByID(ctx, id)
}

func (b *CachedQuestionBank) QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error) {
	key := b.poolKey(difficulty)

	cached, err := b.client.LRange(ctx, key, 0, -1).Result()
	if err == nil && len(cached) > 0 {
		return parseIDs(cached), nil
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the pool.
		cached, err := b.client.LRange(ctx, key, 0, -1).Result()
		if err == nil && len(cached) > 0 {
			return parseIDs(cached), nil
		}

		ids, err := b.source.QuestionIDsByDifficulty(ctx, difficulty)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return ids, nil
		}

		values := make([]interface{}, len(ids))
		for i, id := range ids {
			values[i] = strconv.FormatInt(id, 10)
		}
		pipe := b.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		if ttl := b.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (b *CachedQuestionBank) poolKey(difficulty int) string {
	return "quiz:pool:" + strconv.Itoa(difficulty)
}

func (b *CachedQuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	// Singleflight dedups per key only; fills for different difficulties
	// run concurrently, so the shared source needs its own lock.
	b.mu.Lock()
	jitter := b.rnd.Int63n(jitterMax + 1)
	b.mu.Unlock()
	return b.ttl + time.Duration(jitter)
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
