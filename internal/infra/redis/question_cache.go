package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// QuestionCache caches each session's question list in Redis and falls back to the wrapped
// repository on a miss. Lists are stored as: SET quiz:cache:questions:{code} <json> EX ttl
// Writes pass through and drop the cached list, so every instance sees edits on its next read.
type QuestionCache struct {
	app.QuestionRepository
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, next app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionRepository: next,
		client:             client,
		ttl:                ttl,
		rnd:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, sessionCode string) ([]domain.Question, error) {
	if qs, ok := c.lookup(ctx, sessionCode); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(sessionCode, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.lookup(ctx, sessionCode); ok {
			return qs, nil
		}
		qs, err := c.QuestionRepository.ListQuestions(ctx, sessionCode)
		if err != nil {
			return nil, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(qs); err == nil {
				if err := c.client.Set(ctx, cacheKey(sessionCode), raw, ttl).Err(); err != nil {
					log.Debug().Err(err).Str("session", sessionCode).Msg("question cache fill failed")
				}
			}
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(ctx, q.SessionCode)
	return c.QuestionRepository.CreateQuestion(ctx, q)
}

func (c *QuestionCache) UpdateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(ctx, q.SessionCode)
	return c.QuestionRepository.UpdateQuestion(ctx, q)
}

func (c *QuestionCache) DeleteQuestion(ctx context.Context, id string) error {
	q, err := c.QuestionRepository.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	defer c.Invalidate(ctx, q.SessionCode)
	return c.QuestionRepository.DeleteQuestion(ctx, id)
}

func (c *QuestionCache) ReorderQuestions(ctx context.Context, sessionCode string, ids []string) error {
	defer c.Invalidate(ctx, sessionCode)
	return c.QuestionRepository.ReorderQuestions(ctx, sessionCode, ids)
}

func (c *QuestionCache) DeleteQuestions(ctx context.Context, sessionCode string) error {
	defer c.Invalidate(ctx, sessionCode)
	return c.QuestionRepository.DeleteQuestions(ctx, sessionCode)
}

// Invalidate drops the cached list of one session.
func (c *QuestionCache) Invalidate(ctx context.Context, sessionCode string) {
	if err := c.client.Del(ctx, cacheKey(sessionCode)).Err(); err != nil {
		log.Warn().Err(err).Str("session", sessionCode).Msg("question cache invalidate failed")
	}
}

// lookup treats any Redis failure as a miss; the wrapped repository stays authoritative.
func (c *QuestionCache) lookup(ctx context.Context, sessionCode string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, cacheKey(sessionCode)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("session", sessionCode).Msg("question cache read failed")
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func cacheKey(sessionCode string) string {
	return "quiz:cache:questions:" + sessionCode
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
