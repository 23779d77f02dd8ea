package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/infra/memory"
)

const questionsKey = "questions:bank"

// QuestionBank caches the question list in Redis (one JSON blob with TTL)
// and falls back to a loader on cache miss, so several instances share one
// backing-store read.
type QuestionBank struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if cached, ok := b.fromCache(ctx); ok {
		return cached, nil
	}

	result, err, _ := b.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if cached, ok := b.fromCache(ctx); ok {
			return cached, nil
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			_ = b.client.Set(ctx, questionsKey, data, b.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) fromCache(ctx context.Context) ([]domain.Question, bool) {
	raw, err := b.client.Get(ctx, questionsKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
