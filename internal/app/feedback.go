package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

// ErrFeedbackDisabled is returned when no text generator is configured.
var ErrFeedbackDisabled = errors.New("feedback generator not configured")

// FeedbackService writes narrative feedback for graded submissions.
type FeedbackService struct {
	generator TextGenerator
}

// NewFeedbackService wraps generator. A nil generator disables feedback.
func NewFeedbackService(generator TextGenerator) *FeedbackService {
	return &FeedbackService{generator: generator}
}

// Enabled reports whether a generator is configured.
func (f *FeedbackService) Enabled() bool {
	return f != nil && f.generator != nil
}

// Generate produces feedback text for a submission of answers to quiz.
func (f *FeedbackService) Generate(ctx context.Context, quiz domain.Quiz, answers []string, score int) (string, error) {
	if !f.Enabled() {
		return "", ErrFeedbackDisabled
	}
	text, err := f.generator.Generate(ctx, FeedbackPrompt(quiz, answers, score))
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// FeedbackPrompt lists every question with the student answer, the key and the
// verdict, then asks for strengths, weak areas and improvements.
func FeedbackPrompt(quiz domain.Quiz, answers []string, score int) string {
	var b strings.Builder
	b.WriteString("Analyze the following quiz submission and provide detailed feedback:\n")
	fmt.Fprintf(&b, "- Quiz: %s\n", quiz.Title)
	if quiz.Topic != "" {
		fmt.Fprintf(&b, "- Topic: %s\n", quiz.Topic)
	}
	fmt.Fprintf(&b, "- Total questions: %d\n", len(quiz.Questions))
	fmt.Fprintf(&b, "- Score: %d\n", score)
	b.WriteString("- Questions with answers:\n")
	for i, q := range quiz.Questions {
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		verdict := "Incorrect"
		if grading.Correct(q, answer) {
			verdict = "Correct"
		}
		fmt.Fprintf(&b, "%d. Question: %s\n   Student Answer: %s\n   Correct Answer: %s\n   Result: %s\n",
			i+1, q.Text, answer, q.CorrectAnswer, verdict)
	}
	b.WriteString("\nProvide feedback on the student's performance, identify weak areas, " +
		"highlight strengths, and suggest improvements for achieving excellent results.")
	return b.String()
}
