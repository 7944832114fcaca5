package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// QuestionCache caches question lists per session with TTL to avoid repeated store hits on the
// sync path. Writes go straight through and invalidate the affected session.
type QuestionCache struct {
	app.QuestionRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(next app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionRepository: next,
		ttl:                ttl,
		clock:              time.Now,
		rnd:                rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:              make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, sessionCode string) ([]domain.Question, error) {
	if qs, ok := c.lookup(sessionCode); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(sessionCode, func() (interface{}, error) {
		if qs, ok := c.lookup(sessionCode); ok {
			return qs, nil
		}
		now := c.clock()
		qs, err := c.QuestionRepository.ListQuestions(ctx, sessionCode)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[sessionCode] = cachedQuestions{
			questions: qs,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// GetQuestion is served from the cached session list when one is warm.
func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	c.mu.RLock()
	now := c.clock()
	for _, entry := range c.cache {
		if !entry.expiresAt.After(now) {
			continue
		}
		for _, q := range entry.questions {
			if q.ID == id {
				c.mu.RUnlock()
				return copyQuestion(q), nil
			}
		}
	}
	c.mu.RUnlock()
	return c.QuestionRepository.GetQuestion(ctx, id)
}

func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(q.SessionCode)
	return c.QuestionRepository.CreateQuestion(ctx, q)
}

func (c *QuestionCache) UpdateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(q.SessionCode)
	return c.QuestionRepository.UpdateQuestion(ctx, q)
}

func (c *QuestionCache) DeleteQuestion(ctx context.Context, id string) error {
	q, err := c.QuestionRepository.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	defer c.Invalidate(q.SessionCode)
	return c.QuestionRepository.DeleteQuestion(ctx, id)
}

func (c *QuestionCache) ReorderQuestions(ctx context.Context, sessionCode string, ids []string) error {
	defer c.Invalidate(sessionCode)
	return c.QuestionRepository.ReorderQuestions(ctx, sessionCode, ids)
}

func (c *QuestionCache) DeleteQuestions(ctx context.Context, sessionCode string) error {
	defer c.Invalidate(sessionCode)
	return c.QuestionRepository.DeleteQuestions(ctx, sessionCode)
}

// Invalidate drops the cached list of one session.
func (c *QuestionCache) Invalidate(sessionCode string) {
	c.mu.Lock()
	delete(c.cache, sessionCode)
	c.mu.Unlock()
}

func (c *QuestionCache) lookup(sessionCode string) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[sessionCode]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = copyQuestion(q)
	}
	return out
}
