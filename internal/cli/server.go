package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/infra/memory"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	redisinfra "adaptive-quiz-service/internal/infra/redis"
	transport "adaptive-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Server.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	userStateTTL := config.TTLDuration(cfg.Cache.UserStateTTL, time.Hour)
	poolTTL := config.TTLDuration(cfg.Cache.QuestionPoolTTL, 24*time.Hour)
	idempotencyTTL := config.TTLDuration(cfg.Cache.IdempotencyTTL, 24*time.Hour)
	sessionTTL := config.TTLDuration(cfg.Cache.SessionAskedTTL, 2*time.Hour)
	streakDecay := config.TTLDuration(cfg.Quiz.StreakDecay, 24*time.Hour)
	rateWindow := config.TTLDuration(cfg.RateLimit.Window, time.Minute)

	var (
		stateStore app.StateStore
		board      app.LeaderboardReader
		logReader  app.AnswerLogReader
		bank       app.QuestionBank
	)
	if pool != nil {
		pg := pgstore.NewStore(pool)
		stateStore, board, logReader = pg, pg, pg
		if redisClient != nil {
			bank = redisinfra.NewCachedQuestionBank(redisClient, pg, poolTTL)
		} else {
			bank = memory.NewCachedQuestionBank(pg, poolTTL)
		}
	} else {
		// Demo mode: everything in process, seeded with a small catalog.
		logger.Info("postgres not configured, using in-memory store with sample questions")
		mem := memory.NewStore()
		mem.SeedQuestions(sampleQuestions())
		stateStore, board, logReader = mem, mem, mem
		bank = memory.NewCachedQuestionBank(mem, poolTTL)
	}

	var (
		stateCache app.StateCache
		responses  app.ResponseCache
		tracker    app.SessionTracker
		limiter    app.RateLimiter
	)
	if redisClient != nil {
		stateCache = redisinfra.NewStateCache(redisClient, userStateTTL)
		responses = redisinfra.NewResponseCache(redisClient, idempotencyTTL)
		tracker = redisinfra.NewSessionTracker(redisClient, sessionTTL)
		limiter = redisinfra.NewRateLimiter(redisClient, cfg.RateLimitPerWindow(), rateWindow)
	} else {
		stateCache = memory.NewStateCache(userStateTTL)
		responses = memory.NewResponseCache(idempotencyTTL)
		tracker = memory.NewSessionTracker(sessionTTL)
		limiter = memory.NewRateLimiter(cfg.RateLimitPerWindow(), rateWindow)
	}

	states := app.NewStateManager(stateStore, stateCache, streakDecay, logger)
	answers := app.NewAnswerService(states, bank, stateStore, board, responses, cfg.MinStreakToIncrease(), logger)
	questions := app.NewQuestionService(bank, tracker, states, logger)
	leaderboard := app.NewLeaderboardService(board, logger)
	answers.SetNotifier(leaderboard)
	metrics := app.NewMetricsService(states, logReader)

	handler := transport.NewHandler(answers, questions, leaderboard, metrics, logger)
	ws := transport.NewWSHandler(leaderboard, logger)
	router := transport.NewRouter(handler, ws, limiter, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting adaptive quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
