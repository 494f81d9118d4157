package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	pgmigrations "adaptive-quiz-service/internal/infra/postgres/migrations"
	infraredis "adaptive-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

func TestAnswerFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewStore(pool)
	questionID := seedQuestion(t, ctx, store, 1, "What is 2 + 2?", "4")
	nextID := seedQuestion(t, ctx, store, 1, "What is 3 + 3?", "6")

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	logger := zap.NewNop()
	bank := infraredis.NewCachedQuestionBank(redisClient, store, time.Minute)
	states := app.NewStateManager(store, infraredis.NewStateCache(redisClient, time.Hour), 24*time.Hour, logger)
	answers := app.NewAnswerService(states, bank, store, store, infraredis.NewResponseCache(redisClient, time.Hour), 2, logger)
	questions := app.NewQuestionService(bank, infraredis.NewSessionTracker(redisClient, time.Hour), states, logger)
	leaderboard := app.NewLeaderboardService(store, logger)
	answers.SetNotifier(leaderboard)

	next, err := questions.NextQuestion(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if next.StateVersion != 0 {
		t.Fatalf("expected fresh state, got %+v", next)
	}

	req := domain.AnswerRequest{
		UserID:         "u1",
		SessionID:      "s1",
		QuestionID:     questionID,
		Answer:         "4",
		StateVersion:   0,
		IdempotencyKey: "e2e-key-1",
	}
	outcome, err := answers.Process(ctx, req)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !outcome.Correct || outcome.ScoreDelta != 100 || outcome.StateVersion != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.LeaderboardRankScore != 1 {
		t.Fatalf("expected rank 1, got %d", outcome.LeaderboardRankScore)
	}

	// Retrying the same submission replays the original result without a
	// second commit.
	replay, err := answers.Process(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay != outcome {
		t.Fatalf("replay differs: %+v vs %+v", replay, outcome)
	}
	state, err := store.GetUserState(ctx, "u1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.StateVersion != 1 || state.TotalScore != 100 {
		t.Fatalf("replay mutated state: %+v", state)
	}

	// A stale version loses the race cleanly.
	_, err = answers.Process(ctx, domain.AnswerRequest{
		UserID: "u1", SessionID: "s1", QuestionID: nextID, Answer: "6",
		StateVersion: 0, IdempotencyKey: "e2e-key-2",
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	rows, err := leaderboard.TopScores(ctx, 10)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].Value != 100 {
		t.Fatalf("unexpected leaderboard: %+v", rows)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuestion(t *testing.T, ctx context.Context, store *pgstore.Store, difficulty int, prompt, answer string) int64 {
	t.Helper()
	id, err := store.InsertQuestion(ctx, domain.Question{
		Difficulty:        difficulty,
		Prompt:            prompt,
		Choices:           []string{"3", "4", "5", "6"},
		CorrectAnswerHash: domain.HashAnswer(answer),
	})
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return id
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
