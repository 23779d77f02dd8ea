package game_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

func TestSampleQuestionsInsufficient(t *testing.T) {
	bank := questionBank(12, "defi")
	_, err := game.SampleQuestions(bank, 20, []string{"defi"}, rand.New(rand.NewSource(1)))
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}

func TestSampleQuestionsFiltersAndDedupes(t *testing.T) {
	bank := append(questionBank(10, "defi"), questionBank(10, "nft")...)
	sampled, err := game.SampleQuestions(bank, 8, []string{"defi"}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(sampled) != 8 {
		t.Fatalf("expected 8 questions, got %d", len(sampled))
	}
	seen := make(map[string]struct{})
	for _, q := range sampled {
		if q.Category != "defi" {
			t.Fatalf("sampled outside requested categories: %+v", q)
		}
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("question %s sampled twice", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func questionBank(n int, category string) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:       fmt.Sprintf("%s-%d", category, i),
			Text:     fmt.Sprintf("question %d", i),
			Options:  []string{"a", "b", "c", "d"},
			Correct:  i % 4,
			Category: category,
		})
	}
	return questions
}
