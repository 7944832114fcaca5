package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/game"
	"livequiz-service/internal/infra/memory"
	"livequiz-service/internal/infra/postgres"
	redisstore "livequiz-service/internal/infra/redis"
	"livequiz-service/internal/realtime"
)

// deps is everything a command needs, plus the hooks to release it.
type deps struct {
	service *app.QuizService
	hub     *realtime.Hub
	closers []func()
}

func (rt *deps) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// quizConfig translates the quiz section of the file config into game rules.
func quizConfig(cfg config.Config) app.Config {
	out := app.DefaultConfig()
	out.Rules = game.ScoreRules{
		Base:     config.IntOr(cfg.Quiz.BaseScore, out.Rules.Base),
		MaxBonus: config.IntOr(cfg.Quiz.MaxBonus, out.Rules.MaxBonus),
		Budget:   config.TTLDuration(cfg.Quiz.QuestionTime, out.Rules.Budget),
	}
	out.Pacing = game.Pacing(cfg.Quiz.Pacing)
	out.BreakSize = cfg.Quiz.BreakSize
	out.WinnersSize = cfg.Quiz.WinnersSize
	out.LeaderboardLimit = cfg.Quiz.LeaderboardLimit
	return out
}

func buildRuntime(ctx context.Context, cfg config.Config) (*deps, error) {
	rt := &deps{hub: realtime.NewHub()}
	fail := func(err error) (*deps, error) {
		rt.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err))
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var repos app.Repositories
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		rt.closers = append(rt.closers, pool.Close)
		repos = app.RepositoriesFrom(postgres.NewStore(pool))
	case "redis":
		repos = app.RepositoriesFrom(redisstore.NewStore(redisClient))
	default:
		repos = app.RepositoriesFrom(memory.NewStore())
	}
	repos.Questions = cachedQuestions(redisClient, repos.Questions, quizTTL)
	log.Info().Str("driver", cfg.Store.Driver).Dur("question_ttl", quizTTL).Msg("store ready")

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("livequiz"), nats.MaxReconnects(-1))
		if err != nil {
			return fail(fmt.Errorf("connect nats: %w", err))
		}
		relay := realtime.NewNATSRelay(nc, rt.hub)
		if err := relay.Start(); err != nil {
			nc.Close()
			return fail(err)
		}
		rt.closers = append(rt.closers, func() {
			_ = relay.Close()
			nc.Close()
		})
	}

	quiz := quizConfig(cfg)
	if err := quiz.Validate(); err != nil {
		return fail(err)
	}
	rt.service = app.NewQuizService(repos, quiz, app.WithBroadcaster(rt.hub))
	return rt, nil
}

// cachedQuestions puts a read-through cache in front of the question store. With Redis available
// the cache is shared, so an admin edit on one instance is visible to every instance on its next
// read; otherwise it lives in process.
func cachedQuestions(client *redis.Client, next app.QuestionRepository, ttl time.Duration) app.QuestionRepository {
	if client != nil {
		return redisstore.NewQuestionCache(client, next, ttl)
	}
	return memory.NewQuestionCache(next, ttl)
}
