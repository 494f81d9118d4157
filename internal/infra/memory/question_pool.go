package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionSource is the backing catalog a cached bank fills from.
type QuestionSource interface {
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error)
}

// CachedQuestionBank memoizes per-difficulty id pools with a TTL so the
// selector does not hammer the catalog on every pick. The catalog
// changes rarely; staleness within the TTL is acceptable.
type CachedQuestionBank struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	pools map[int]cachedPool
}

type cachedPool struct {
	ids       []int64
	expiresAt time.Time
}

func NewCachedQuestionBank(source QuestionSource, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pools:  make(map[int]cachedPool),
	}
}

func (b *CachedQuestionBank) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	return b.source.QuestionByID(ctx, id)
}

func (b *CachedQuestionBank) QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error) {
	now := b.clock()

	b.mu.RLock()
	if pool, ok := b.pools[difficulty]; ok && pool.expiresAt.After(now) {
		b.mu.RUnlock()
		return pool.ids, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(fmt.Sprintf("pool:%d", difficulty), func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if pool, ok := b.pools[difficulty]; ok && pool.expiresAt.After(now) {
			b.mu.RUnlock()
			return pool.ids, nil
		}
		b.mu.RUnlock()

		ids, err := b.source.QuestionIDsByDifficulty(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.pools[difficulty] = cachedPool{ids: ids, expiresAt: now.Add(b.ttlWithJitter())}
		b.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (b *CachedQuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
