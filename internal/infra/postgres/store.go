package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the durable side of the quiz engine: user state, question
// catalog, answer log, and leaderboard projections, all in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	var (
		q          domain.Question
		choicesRaw []byte
		tagsRaw    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, difficulty, prompt, choices, correct_answer_hash, tags
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Difficulty, &q.Prompt, &choicesRaw, &q.CorrectAnswerHash, &tagsRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	if err := json.Unmarshal(choicesRaw, &q.Choices); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal choices: %w", err)
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &q.Tags); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return q, nil
}

func (s *Store) QuestionIDsByDifficulty(ctx context.Context, difficulty int) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM questions WHERE difficulty = $1 ORDER BY id`, difficulty)
	if err != nil {
		return nil, fmt.Errorf("question pool: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertQuestion adds one catalog entry; used by the seed command.
func (s *Store) InsertQuestion(ctx context.Context, q domain.Question) (int64, error) {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return 0, fmt.Errorf("marshal choices: %w", err)
	}
	var tags []byte
	if len(q.Tags) > 0 {
		if tags, err = json.Marshal(q.Tags); err != nil {
			return 0, fmt.Errorf("marshal tags: %w", err)
		}
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO questions (difficulty, prompt, choices, correct_answer_hash, tags)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		q.Difficulty, q.Prompt, choices, q.CorrectAnswerHash, tags,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserState(ctx context.Context, userID string) (domain.UserState, error) {
	var state domain.UserState
	var sessionID *string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, current_difficulty, streak, max_streak, total_score,
		        last_question_id, last_answer_at, session_id, state_version
		 FROM user_state WHERE user_id = $1`, userID,
	).Scan(&state.UserID, &state.CurrentDifficulty, &state.Streak, &state.MaxStreak,
		&state.TotalScore, &state.LastQuestionID, &state.LastAnswerAt, &sessionID, &state.StateVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserState{}, domain.ErrUserStateNotFound
	}
	if err != nil {
		return domain.UserState{}, fmt.Errorf("load user state: %w", err)
	}
	if sessionID != nil {
		state.SessionID = *sessionID
	}
	return state, nil
}

func (s *Store) CreateUserState(ctx context.Context, userID, sessionID string) (domain.UserState, error) {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return domain.UserState{}, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO user_state (user_id, session_id) VALUES ($1, NULLIF($2, ''))
		 ON CONFLICT (user_id) DO NOTHING`, userID, sessionID); err != nil {
		return domain.UserState{}, fmt.Errorf("create user state: %w", err)
	}
	return s.GetUserState(ctx, userID)
}

func (s *Store) UpdateSessionID(ctx context.Context, userID, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_state SET session_id = NULLIF($2, '') WHERE user_id = $1`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *Store) ResetStreak(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_state SET streak = 0 WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// CommitAnswer applies one answer in a single transaction. The state
// update is a compare-and-swap on state_version; zero rows affected
// aborts the whole transaction with ErrVersionConflict so the audit
// append and leaderboard upserts can never outlive a lost race. A
// duplicate idempotency key likewise aborts, as ErrAlreadyProcessed.
func (s *Store) CommitAnswer(ctx context.Context, commit domain.AnswerCommit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE user_state
		 SET current_difficulty = $3, streak = $4, max_streak = $5, total_score = $6,
		     last_question_id = $7, last_answer_at = $8,
		     session_id = COALESCE(NULLIF($9, ''), session_id),
		     state_version = state_version + 1
		 WHERE user_id = $1 AND state_version = $2`,
		commit.UserID, commit.ExpectedVersion,
		commit.NewDifficulty, commit.NewStreak, commit.NewMaxStreak, commit.NewTotalScore,
		commit.QuestionID, commit.AnsweredAt, commit.SessionID)
	if err != nil {
		return fmt.Errorf("update user state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	tag, err = tx.Exec(ctx,
		`INSERT INTO answer_log
		   (user_id, question_id, difficulty, answer, correct, score_delta,
		    streak_at_answer, answered_at, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		commit.Log.UserID, commit.Log.QuestionID, commit.Log.Difficulty, commit.Log.Answer,
		commit.Log.Correct, commit.Log.ScoreDelta, commit.Log.StreakAtAnswer,
		commit.Log.AnsweredAt, commit.Log.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("append answer log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyProcessed
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO leaderboard_score (user_id, total_score, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_score = EXCLUDED.total_score, updated_at = EXCLUDED.updated_at`,
		commit.UserID, commit.NewTotalScore, commit.AnsweredAt); err != nil {
		return fmt.Errorf("upsert score board: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO leaderboard_streak (user_id, max_streak, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET max_streak = EXCLUDED.max_streak, updated_at = EXCLUDED.updated_at`,
		commit.UserID, commit.NewMaxStreak, commit.AnsweredAt); err != nil {
		return fmt.Errorf("upsert streak board: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit answer: %w", err)
	}
	return nil
}

func (s *Store) CountScoresAbove(ctx context.Context, score int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM leaderboard_score WHERE total_score > $1`, score).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scores: %w", err)
	}
	return count, nil
}

func (s *Store) CountStreaksAbove(ctx context.Context, streak int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM leaderboard_streak WHERE max_streak > $1`, streak).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count streaks: %w", err)
	}
	return count, nil
}

func (s *Store) TopScores(ctx context.Context, n int) ([]domain.LeaderboardRow, error) {
	return s.topRows(ctx,
		`SELECT user_id, total_score, updated_at FROM leaderboard_score
		 ORDER BY total_score DESC LIMIT $1`, n)
}

func (s *Store) TopStreaks(ctx context.Context, n int) ([]domain.LeaderboardRow, error) {
	return s.topRows(ctx,
		`SELECT user_id, max_streak, updated_at FROM leaderboard_streak
		 ORDER BY max_streak DESC LIMIT $1`, n)
}

func (s *Store) topRows(ctx context.Context, query string, n int) ([]domain.LeaderboardRow, error) {
	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardRow
	for rows.Next() {
		var row domain.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Value, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) RecentAnswers(ctx context.Context, userID string, since time.Time, limit int) ([]domain.AnswerLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, difficulty, answer, correct, score_delta,
		        streak_at_answer, answered_at, idempotency_key
		 FROM answer_log
		 WHERE user_id = $1 AND answered_at >= $2
		 ORDER BY answered_at DESC LIMIT $3`,
		userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("answer log query: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerLogEntry
	for rows.Next() {
		entry := domain.AnswerLogEntry{UserID: userID}
		if err := rows.Scan(&entry.QuestionID, &entry.Difficulty, &entry.Answer, &entry.Correct,
			&entry.ScoreDelta, &entry.StreakAtAnswer, &entry.AnsweredAt, &entry.IdempotencyKey); err != nil {
			return nil, fmt.Errorf("scan answer log: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
