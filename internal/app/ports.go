package app

import (
	"context"
	"fmt"

	"quizdesk/internal/domain"
)

// QuizRepository stores quiz documents together with their submissions.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	FindQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	// UpdateQuiz loads the quiz, applies mutate and persists the result as one
	// atomic step. Nothing is written when mutate returns an error.
	UpdateQuiz(ctx context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	DeleteQuizzesByCreator(ctx context.Context, userID string) (int, error)
}

// UserRepository stores user accounts. Reads never return password hashes.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	// UpdateUser applies mutate atomically. mutate sees the stored password
	// hash; the returned user does not carry it.
	UpdateUser(ctx context.Context, userID string, mutate func(*domain.User) error) (domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
	// PasswordHash is the only read that exposes the stored hash.
	PasswordHash(ctx context.Context, userID string) (string, error)
}

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Caller is the authenticated user behind a request.
type Caller struct {
	ID   string
	Role domain.Role
}

func (c Caller) require(role domain.Role) error {
	if c.ID == "" || c.Role != role {
		return domain.ErrForbidden
	}
	return nil
}

// upstream wraps store failures, leaving domain sentinels untouched.
func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.Known(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}
