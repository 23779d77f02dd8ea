package game

import (
	"context"
	"math/rand"

	"bonk-blitz/internal/domain"
)

// QuestionSource loads the question bank (from cache/backing store). The game
// performs its own sampling; the source only lists.
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// SampleQuestions picks count random questions matching the category set,
// without replacement. Returns ErrInsufficientQuestions when fewer than count
// questions match.
func SampleQuestions(all []domain.Question, count int, categories []string, rnd *rand.Rand) ([]domain.Question, error) {
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	matching := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if _, ok := wanted[q.Category]; ok {
			matching = append(matching, q)
		}
	}
	if len(matching) < count {
		return nil, domain.ErrInsufficientQuestions
	}

	rnd.Shuffle(len(matching), func(i, j int) {
		matching[i], matching[j] = matching[j], matching[i]
	})
	return matching[:count], nil
}
