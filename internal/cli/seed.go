package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/logging"
)

// NewSeedCmd creates the demo session in a persistent store. The in-memory store is seeded by
// start instead.
func NewSeedCmd(configPath *string) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo quiz session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
			if cfg.Store.Driver == "memory" {
				return errors.New("seed needs a persistent store; set store.driver to redis or postgres")
			}
			if cfg.Store.Driver == "postgres" {
				if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()
			return Seed(cmd.Context(), rt.service, code)
		},
	}
	cmd.Flags().StringVar(&code, "code", "QUIZ1", "session code to create")
	return cmd
}

type seedQuestion struct {
	text    string
	options []string
	correct int
}

var demoQuestions = []seedQuestion{
	{"What is 2 + 2?", []string{"3", "4", "5", "22"}, 1},
	{"What is the capital of France?", []string{"Berlin", "Madrid", "Paris", "Rome"}, 2},
	{"What colour is a clear daytime sky?", []string{"Green", "Blue", "Red", "Yellow"}, 1},
}

// Seed creates a demo session with three questions. An existing session with the same code is
// left untouched.
func Seed(ctx context.Context, svc *app.QuizService, code string) error {
	session, err := svc.CreateSession(ctx, code, "Demo Quiz")
	if errors.Is(err, domain.ErrSessionExists) {
		log.Info().Str("session", domain.NormalizeCode(code)).Msg("demo session already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create demo session: %w", err)
	}
	for _, q := range demoQuestions {
		opts := make([]domain.Option, len(q.options))
		for i, text := range q.options {
			opts[i] = domain.Option{Text: text, IsCorrect: i == q.correct}
		}
		if _, err := svc.AddQuestion(ctx, session.Code, q.text, opts); err != nil {
			return fmt.Errorf("add demo question: %w", err)
		}
	}
	log.Info().Str("session", session.Code).Int("questions", len(demoQuestions)).Msg("demo session seeded")
	return nil
}
