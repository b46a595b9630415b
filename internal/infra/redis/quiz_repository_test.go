package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"quizhub/internal/domain"
)

func TestQuizRepositoryCachesSnapshot(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	loader := &countingLoader{quiz: sampleQuiz()}
	repo := NewQuizRepository(client, loader, 5*time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].Text == "" {
		t.Fatalf("expected full snapshot back, got %+v", quiz)
	}
	if !mr.Exists("quiz:quiz-1:snapshot") {
		t.Fatalf("expected snapshot key in redis")
	}

	// Second read must come from the cache, prompts intact.
	quiz, err = repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if quiz.Questions[0].Text != "What is 2 + 2?" {
		t.Fatalf("cached snapshot lost the prompt: %+v", quiz.Questions[0])
	}
}

func TestQuizRepositoryLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	repo := NewQuizRepository(client, &countingLoader{err: domain.ErrQuizNotFound}, time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	quiz  domain.Quiz
	err   error
	calls int
}

func (l *countingLoader) LoadQuiz(_ context.Context, _ string) (domain.Quiz, error) {
	l.calls++
	if l.err != nil {
		return domain.Quiz{}, l.err
	}
	return l.quiz, nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Title:            "Sample",
		DefaultTimeLimit: 20,
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
				Points: 1000,
			},
		},
	}
}
