package memory

import (
	"context"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// StateCache is the in-memory stand-in for the Redis user-state cache.
type StateCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]stateEntry
}

type stateEntry struct {
	state     domain.UserState
	expiresAt time.Time
}

func NewStateCache(ttl time.Duration) *StateCache {
	return &StateCache{ttl: ttl, clock: time.Now, entries: make(map[string]stateEntry)}
}

func (c *StateCache) GetState(_ context.Context, userID string) (domain.UserState, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.UserState{}, false, nil
	}
	return entry.state, true, nil
}

func (c *StateCache) SetState(_ context.Context, state domain.UserState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[state.UserID] = stateEntry{state: state, expiresAt: c.clock().Add(c.ttl)}
	return nil
}

func (c *StateCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// ResponseCache stores idempotency responses with a TTL.
type ResponseCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]responseEntry
}

type responseEntry struct {
	raw       []byte
	expiresAt time.Time
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{ttl: ttl, clock: time.Now, entries: make(map[string]responseEntry)}
}

func (c *ResponseCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false, nil
	}
	return entry.raw, true, nil
}

func (c *ResponseCache) Set(_ context.Context, key string, response []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw := make([]byte, len(response))
	copy(raw, response)
	c.entries[key] = responseEntry{raw: raw, expiresAt: c.clock().Add(c.ttl)}
	return nil
}

// SessionTracker keeps per-(user, session) asked-question sets.
type SessionTracker struct {
	ttl   time.Duration
	clock func() time.Time

	mu   sync.Mutex
	sets map[string]askedEntry
}

type askedEntry struct {
	ids       map[int64]struct{}
	expiresAt time.Time
}

func NewSessionTracker(ttl time.Duration) *SessionTracker {
	return &SessionTracker{ttl: ttl, clock: time.Now, sets: make(map[string]askedEntry)}
}

func (t *SessionTracker) Asked(_ context.Context, userID, sessionID string) ([]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.sets[userID+"|"+sessionID]
	if !ok || !entry.expiresAt.After(t.clock()) {
		return nil, nil
	}
	ids := make([]int64, 0, len(entry.ids))
	for id := range entry.ids {
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *SessionTracker) MarkAsked(_ context.Context, userID, sessionID string, questionID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := userID + "|" + sessionID
	entry, ok := t.sets[key]
	if !ok || !entry.expiresAt.After(t.clock()) {
		entry = askedEntry{ids: make(map[int64]struct{})}
	}
	entry.ids[questionID] = struct{}{}
	entry.expiresAt = t.clock().Add(t.ttl)
	t.sets[key] = entry
	return nil
}

// RateLimiter is a fixed-window counter per (user, endpoint).
type RateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window, clock: time.Now, windows: make(map[string]rateWindow)}
}

func (l *RateLimiter) Allow(_ context.Context, userID, endpoint string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := userID + "|" + endpoint
	now := l.clock()
	win, ok := l.windows[key]
	if !ok || now.After(win.resetAt) {
		win = rateWindow{resetAt: now.Add(l.window)}
	}
	win.count++
	l.windows[key] = win

	remaining := l.limit - win.count
	if remaining < 0 {
		remaining = 0
	}
	return win.count <= l.limit, remaining, nil
}
