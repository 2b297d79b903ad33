package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"quizdesk/internal/domain"
)

// DefaultTimeLimit applies when a quiz is created without a time limit.
const DefaultTimeLimit = 30

// QuestionInput is one question of a quiz authoring request.
type QuestionInput struct {
	Text          string   `json:"questionText" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"min=2,max=10,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
}

// GeofenceInput restricts submissions to a circle around a point.
type GeofenceInput struct {
	Enabled   bool    `json:"enabled"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Radius    float64 `json:"radius" validate:"required_if=Enabled true,min=0"`
}

// QuizInput is the body for creating or editing a quiz.
type QuizInput struct {
	Title     string          `json:"title" validate:"required,max=200"`
	Topic     string          `json:"topic" validate:"max=100"`
	Code      string          `json:"quizCode" validate:"omitempty,alphanum,min=4,max=32"`
	TimeLimit int             `json:"timeLimit" validate:"min=1,max=300"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
	Geofence  *GeofenceInput  `json:"geofence" validate:"omitempty"`
}

// SubmissionInput is the body of a quiz submission.
type SubmissionInput struct {
	Answers  []string        `json:"answers" validate:"required"`
	Location *domain.Location `json:"location"`
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role `json:"role" validate:"required,oneof=student teacher admin"`
}

// ProfileInput changes the caller's name or email. Empty fields are kept.
type ProfileInput struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// PasswordInput changes the caller's password.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// MinPasswordLength applies to registration and password changes.
const MinPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates v and wraps failures into domain.ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

// normalize trims question text, options and answer keys so that the key can
// match a trimmed student answer. It copies the option slices it rewrites.
func (in *QuizInput) normalize() {
	questions := make([]QuestionInput, len(in.Questions))
	for i, q := range in.Questions {
		options := make([]string, len(q.Options))
		for j, o := range q.Options {
			options[j] = strings.TrimSpace(o)
		}
		questions[i] = QuestionInput{
			Text:          strings.TrimSpace(q.Text),
			Options:       options,
			CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
		}
	}
	in.Questions = questions
	in.Title = strings.TrimSpace(in.Title)
	in.Topic = strings.TrimSpace(in.Topic)
}

// validateQuiz runs tag validation plus the answer key check.
func validateQuiz(in QuizInput) error {
	if err := check(in); err != nil {
		return err
	}
	for i, q := range in.Questions {
		if !contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("%w: question %d: correct answer %q is not one of the options", domain.ErrValidation, i+1, q.CorrectAnswer)
		}
	}
	return nil
}

func contains(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}

func (in QuizInput) questions() []domain.Question {
	out := make([]domain.Question, len(in.Questions))
	for i, q := range in.Questions {
		out[i] = domain.Question{
			Text:          strings.TrimSpace(q.Text),
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return out
}

func (in QuizInput) geofence() *domain.Geofence {
	if in.Geofence == nil {
		return nil
	}
	g := domain.Geofence(*in.Geofence)
	return &g
}
