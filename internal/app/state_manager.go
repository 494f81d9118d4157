package app

import (
	"context"
	"time"

	"adaptive-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// StateManager owns the cached read path for user state, including lazy
// streak decay: a streak older than the decay window is served as zero
// and the reset is persisted so later reads agree.
type StateManager struct {
	store StateStore
	cache StateCache
	decay time.Duration
	now   func() time.Time
	log   *zap.Logger
}

func NewStateManager(store StateStore, cache StateCache, decay time.Duration, log *zap.Logger) *StateManager {
	return &StateManager{
		store: store,
		cache: cache,
		decay: decay,
		now:   time.Now,
		log:   log,
	}
}

// WithClock is test-only for deterministic decay checks.
func (m *StateManager) WithClock(now func() time.Time) *StateManager {
	m.now = now
	return m
}

// Get returns the user's state, or found=false when the user has never
// played. Cache misses fall through to the store and warm the cache.
func (m *StateManager) Get(ctx context.Context, userID string) (domain.UserState, bool, error) {
	if state, ok, err := m.cache.GetState(ctx, userID); err == nil && ok {
		return m.applyDecay(ctx, state), true, nil
	} else if err != nil {
		m.log.Warn("state cache read failed", zap.String("user", userID), zap.Error(err))
	}

	state, err := m.store.GetUserState(ctx, userID)
	if err == domain.ErrUserStateNotFound {
		return domain.UserState{}, false, nil
	}
	if err != nil {
		return domain.UserState{}, false, err
	}

	state = m.applyDecay(ctx, state)
	if err := m.cache.SetState(ctx, state); err != nil {
		m.log.Warn("state cache write failed", zap.String("user", userID), zap.Error(err))
	}
	return state, true, nil
}

// GetOrCreate implicitly registers the user on first contact and adopts
// the caller's session id when it differs from the stored one.
func (m *StateManager) GetOrCreate(ctx context.Context, userID, sessionID string) (domain.UserState, error) {
	state, found, err := m.Get(ctx, userID)
	if err != nil {
		return domain.UserState{}, err
	}
	if !found {
		state, err = m.store.CreateUserState(ctx, userID, sessionID)
		if err != nil {
			return domain.UserState{}, err
		}
	}

	if sessionID != "" && state.SessionID != sessionID {
		if err := m.store.UpdateSessionID(ctx, userID, sessionID); err != nil {
			return domain.UserState{}, err
		}
		if err := m.cache.Invalidate(ctx, userID); err != nil {
			m.log.Warn("state cache invalidate failed", zap.String("user", userID), zap.Error(err))
		}
		state.SessionID = sessionID
	}
	return state, nil
}

// Invalidate drops the cached copy after a commit.
func (m *StateManager) Invalidate(ctx context.Context, userID string) {
	if err := m.cache.Invalidate(ctx, userID); err != nil {
		m.log.Warn("state cache invalidate failed", zap.String("user", userID), zap.Error(err))
	}
}

func (m *StateManager) applyDecay(ctx context.Context, state domain.UserState) domain.UserState {
	if state.Streak == 0 || state.LastAnswerAt == nil {
		return state
	}
	if m.now().Sub(*state.LastAnswerAt) <= m.decay {
		return state
	}

	state.Streak = 0
	if err := m.store.ResetStreak(ctx, state.UserID); err != nil {
		m.log.Warn("streak decay persist failed", zap.String("user", state.UserID), zap.Error(err))
	}
	if err := m.cache.SetState(ctx, state); err != nil {
		m.log.Warn("state cache write failed", zap.String("user", state.UserID), zap.Error(err))
	}
	return state
}
