package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRef identifies one (user, session) play context for repeat
// avoidance.
type SessionRef struct {
	UserID    string
	SessionID string
}

// QuestionService selects the next question for a user: unseen questions
// at the target difficulty first, then easier bands, then harder ones.
type QuestionService struct {
	questions QuestionBank
	sessions  SessionTracker
	states    *StateManager
	log       *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionService(questions QuestionBank, sessions SessionTracker, states *StateManager, log *zap.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		sessions:  sessions,
		states:    states,
		log:       log,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand injects a deterministic source for tests.
func (s *QuestionService) WithRand(rnd *rand.Rand) *QuestionService {
	s.rnd = rnd
	return s
}

// NextQuestion serves the question payload for one user. A session id is
// adopted from the caller, recovered from stored state, or minted fresh
// so repeat avoidance always has a session to track.
func (s *QuestionService) NextQuestion(ctx context.Context, userID, sessionID string) (domain.NextQuestion, error) {
	state, err := s.states.GetOrCreate(ctx, userID, sessionID)
	if err != nil {
		return domain.NextQuestion{}, err
	}

	effectiveSession := state.SessionID
	if effectiveSession == "" {
		effectiveSession = sessionID
	}
	if effectiveSession == "" {
		effectiveSession = uuid.NewString()
		state, err = s.states.GetOrCreate(ctx, userID, effectiveSession)
		if err != nil {
			return domain.NextQuestion{}, err
		}
	}

	session := &SessionRef{UserID: userID, SessionID: effectiveSession}
	questionID, err := s.PickNext(ctx, state.CurrentDifficulty, state.LastQuestionID, session)
	if err != nil {
		return domain.NextQuestion{}, err
	}

	question, err := s.questions.QuestionByID(ctx, questionID)
	if err != nil {
		return domain.NextQuestion{}, err
	}

	return domain.NextQuestion{
		QuestionID:    question.ID,
		Difficulty:    question.Difficulty,
		Prompt:        question.Prompt,
		Choices:       question.Choices,
		SessionID:     effectiveSession,
		StateVersion:  state.StateVersion,
		CurrentScore:  state.TotalScore,
		CurrentStreak: state.Streak,
	}, nil
}

// PickNext picks an unseen question id near the target difficulty.
// The search falls back through easier bands first, then harder ones,
// and returns domain.ErrNoQuestionsAvailable when every band is
// exhausted. Picks are uniform-random within the filtered pool.
func (s *QuestionService) PickNext(ctx context.Context, difficulty int, excludeID *int64, session *SessionRef) (int64, error) {
	exclude := make(map[int64]struct{})
	if excludeID != nil {
		exclude[*excludeID] = struct{}{}
	}
	if session != nil {
		asked, err := s.sessions.Asked(ctx, session.UserID, session.SessionID)
		if err != nil {
			s.log.Warn("session asked-set read failed", zap.String("user", session.UserID), zap.Error(err))
		}
		for _, id := range asked {
			exclude[id] = struct{}{}
		}
	}

	difficulty = clampDifficulty(difficulty)
	pool, err := s.filteredPool(ctx, difficulty, exclude)
	if err != nil {
		return 0, err
	}

	if len(pool) == 0 {
		for d := difficulty - 1; d >= domain.MinDifficulty; d-- {
			if pool, err = s.filteredPool(ctx, d, exclude); err != nil {
				return 0, err
			}
			if len(pool) > 0 {
				break
			}
		}
	}
	if len(pool) == 0 {
		for d := difficulty + 1; d <= domain.MaxDifficulty; d++ {
			if pool, err = s.filteredPool(ctx, d, exclude); err != nil {
				return 0, err
			}
			if len(pool) > 0 {
				break
			}
		}
	}
	if len(pool) == 0 {
		return 0, domain.ErrNoQuestionsAvailable
	}

	s.mu.Lock()
	picked := pool[s.rnd.Intn(len(pool))]
	s.mu.Unlock()

	if session != nil {
		if err := s.sessions.MarkAsked(ctx, session.UserID, session.SessionID, picked); err != nil {
			s.log.Warn("session asked-set write failed", zap.String("user", session.UserID), zap.Error(err))
		}
	}
	return picked, nil
}

func (s *QuestionService) filteredPool(ctx context.Context, difficulty int, exclude map[int64]struct{}) ([]int64, error) {
	ids, err := s.questions.QuestionIDsByDifficulty(ctx, difficulty)
	if err != nil {
		return nil, fmt.Errorf("question pool difficulty %d: %w", difficulty, err)
	}
	pool := ids[:0:0]
	for _, id := range ids {
		if _, skip := exclude[id]; !skip {
			pool = append(pool, id)
		}
	}
	return pool, nil
}
