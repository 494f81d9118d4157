package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/domain"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// seedQuestion is the on-disk shape of one catalog entry. The plaintext
// answer is hashed on ingest and never stored.
type seedQuestion struct {
	Difficulty int      `json:"difficulty"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Answer     string   `json:"answer"`
	Tags       []string `json:"tags,omitempty"`
}

// NewSeedCmd loads a question catalog from a JSON file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <questions.json>",
		Short: "Seed the question catalog from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var seeds []seedQuestion
			if err := json.Unmarshal(data, &seeds); err != nil {
				return fmt.Errorf("parse questions file: %w", err)
			}

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := pgstore.NewStore(pool)
			for i, seed := range seeds {
				if seed.Difficulty < domain.MinDifficulty || seed.Difficulty > domain.MaxDifficulty {
					return fmt.Errorf("question %d: difficulty %d out of range", i, seed.Difficulty)
				}
				if seed.Prompt == "" || seed.Answer == "" || len(seed.Choices) == 0 {
					return fmt.Errorf("question %d: prompt, choices, and answer are required", i)
				}
				_, err := store.InsertQuestion(ctx, domain.Question{
					Difficulty:        seed.Difficulty,
					Prompt:            seed.Prompt,
					Choices:           seed.Choices,
					CorrectAnswerHash: domain.HashAnswer(seed.Answer),
					Tags:              seed.Tags,
				})
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d questions\n", len(seeds))
			return nil
		},
	}
}
