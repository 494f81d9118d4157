package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// MaxIdempotencyKeyLen bounds client-supplied idempotency keys.
const MaxIdempotencyKeyLen = 64

// AnswerService is the answer-processing engine. Exactly one state
// transition happens per logical submission: retries replay the cached
// response, and concurrent submissions race on the state-version
// compare-and-swap inside the store transaction.
type AnswerService struct {
	states    *StateManager
	questions QuestionBank
	store     StateStore
	board     LeaderboardReader
	responses ResponseCache
	notifier  LeaderboardNotifier

	minStreakToIncrease int
	log                 *zap.Logger
}

func NewAnswerService(
	states *StateManager,
	questions QuestionBank,
	store StateStore,
	board LeaderboardReader,
	responses ResponseCache,
	minStreakToIncrease int,
	log *zap.Logger,
) *AnswerService {
	return &AnswerService{
		states:              states,
		questions:           questions,
		store:               store,
		board:               board,
		responses:           responses,
		minStreakToIncrease: minStreakToIncrease,
		log:                 log,
	}
}

// SetNotifier attaches a post-commit leaderboard notifier.
func (s *AnswerService) SetNotifier(n LeaderboardNotifier) {
	s.notifier = n
}

// Process evaluates one answer submission end to end.
func (s *AnswerService) Process(ctx context.Context, req domain.AnswerRequest) (domain.AnswerOutcome, error) {
	key := truncateKey(req.IdempotencyKey)

	if outcome, ok := s.replay(ctx, key); ok {
		return outcome, nil
	}

	question, err := s.questions.QuestionByID(ctx, req.QuestionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	state, err := s.states.GetOrCreate(ctx, req.UserID, req.SessionID)
	if err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("load user state: %w", err)
	}

	correct := domain.HashAnswer(req.Answer) == question.CorrectAnswerHash

	if state.StateVersion != req.StateVersion {
		return domain.AnswerOutcome{}, domain.ErrVersionConflict
	}

	streakBefore := state.Streak
	newDifficulty := NextDifficulty(state.CurrentDifficulty, correct, streakBefore, s.minStreakToIncrease)
	newStreak := 0
	if correct {
		newStreak = streakBefore + 1
	}
	delta := ScoreDelta(question.Difficulty, streakBefore, correct)
	newTotalScore := state.TotalScore + int64(delta)
	newMaxStreak := state.MaxStreak
	if newStreak > newMaxStreak {
		newMaxStreak = newStreak
	}

	now := s.states.now()
	commit := domain.AnswerCommit{
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		QuestionID:      req.QuestionID,
		ExpectedVersion: req.StateVersion,
		NewDifficulty:   newDifficulty,
		NewStreak:       newStreak,
		NewMaxStreak:    newMaxStreak,
		NewTotalScore:   newTotalScore,
		AnsweredAt:      now,
		Log: domain.AnswerLogEntry{
			UserID:         req.UserID,
			QuestionID:     req.QuestionID,
			Difficulty:     question.Difficulty,
			Answer:         req.Answer,
			Correct:        correct,
			ScoreDelta:     delta,
			StreakAtAnswer: streakBefore,
			AnsweredAt:     now,
			IdempotencyKey: key,
		},
	}

	if err := s.store.CommitAnswer(ctx, commit); err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			// Audit log already holds this key: the answer went through on a
			// previous attempt whose response cache entry may have raced us.
			if outcome, ok := s.replay(ctx, key); ok {
				return outcome, nil
			}
			return domain.AnswerOutcome{}, domain.ErrVersionConflict
		}
		return domain.AnswerOutcome{}, err
	}

	s.states.Invalidate(ctx, req.UserID)

	rankScore, err := s.board.CountScoresAbove(ctx, newTotalScore)
	if err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("score rank: %w", err)
	}
	rankStreak, err := s.board.CountStreaksAbove(ctx, newMaxStreak)
	if err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("streak rank: %w", err)
	}

	outcome := domain.AnswerOutcome{
		Correct:               correct,
		NewDifficulty:         newDifficulty,
		NewStreak:             newStreak,
		ScoreDelta:            delta,
		TotalScore:            newTotalScore,
		StateVersion:          state.StateVersion + 1,
		LeaderboardRankScore:  rankScore + 1,
		LeaderboardRankStreak: rankStreak + 1,
	}

	if raw, err := json.Marshal(outcome); err == nil {
		if err := s.responses.Set(ctx, key, raw); err != nil {
			s.log.Warn("idempotency cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.AnswerCommitted(ctx)
	}
	return outcome, nil
}

// CurrentState exposes the cached read path for transport-level version
// preflight checks.
func (s *AnswerService) CurrentState(ctx context.Context, userID, sessionID string) (domain.UserState, error) {
	return s.states.GetOrCreate(ctx, userID, sessionID)
}

func (s *AnswerService) replay(ctx context.Context, key string) (domain.AnswerOutcome, bool) {
	raw, ok, err := s.responses.Get(ctx, key)
	if err != nil {
		s.log.Warn("idempotency cache read failed", zap.String("key", key), zap.Error(err))
		return domain.AnswerOutcome{}, false
	}
	if !ok {
		return domain.AnswerOutcome{}, false
	}
	var outcome domain.AnswerOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		s.log.Warn("cached response unreadable", zap.String("key", key), zap.Error(err))
		return domain.AnswerOutcome{}, false
	}
	return outcome, true
}

func truncateKey(key string) string {
	if len(key) > MaxIdempotencyKeyLen {
		return key[:MaxIdempotencyKeyLen]
	}
	return key
}
