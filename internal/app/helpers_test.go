package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
)

var (
	base    = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	teacher = app.Caller{ID: "t1", Role: domain.RoleTeacher}
	student = app.Caller{ID: "s1", Role: domain.RoleStudent}
	admin   = app.Caller{ID: "a1", Role: domain.RoleAdmin}
)

func clock() time.Time { return base }

func fiveQuestionInput() app.QuizInput {
	q := func(text, correct string) app.QuestionInput {
		return app.QuestionInput{Text: text, Options: []string{"A", "B", "C", "D"}, CorrectAnswer: correct}
	}
	return app.QuizInput{
		Title:     "Unit 3 review",
		Topic:     "Science",
		Code:      "SCI300",
		Questions: []app.QuestionInput{
			q("one", "A"), q("two", "B"), q("three", "C"), q("four", "D"), q("five", "A"),
		},
	}
}

// publishedQuiz creates and publishes the five question quiz owned by teacher.
func publishedQuiz(t *testing.T, svc *app.QuizService) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := svc.CreateQuiz(ctx, teacher, fiveQuestionInput())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := svc.PublishQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish quiz: %v", err)
	}
	return quiz
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

// brokenRepo fails every read and write with a store error.
type brokenRepo struct {
	*memory.QuizRepository
}

var errStoreDown = errors.New("connection refused")

func (brokenRepo) GetQuiz(context.Context, string) (domain.Quiz, error) {
	return domain.Quiz{}, errStoreDown
}

func (brokenRepo) FindQuizzes(context.Context, domain.QuizFilter) ([]domain.Quiz, error) {
	return nil, errStoreDown
}
