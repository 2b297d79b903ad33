// Package grading scores submissions against a quiz answer key.
package grading

import (
	"math"
	"strings"

	"quizdesk/internal/domain"
)

// DefaultPassThreshold is the share of correct answers needed to pass.
const DefaultPassThreshold = 0.6

// Grade counts answers that exactly match the correct answer of the question at the
// same index. Answers are trimmed first; an empty answer is never correct.
// The caller must ensure len(answers) == len(questions).
func Grade(questions []domain.Question, answers []string) int {
	score := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if Correct(q, answers[i]) {
			score++
		}
	}
	return score
}

// Correct reports whether answer earns the point for q.
func Correct(q domain.Question, answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	return trimmed == strings.TrimSpace(q.CorrectAnswer)
}

// Percentage converts score out of total into a whole percentage, rounding half up.
// A zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return Round(float64(score) / float64(total) * 100)
}

// Round rounds half up. Scores are never negative, so this matches math.Round.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Passed reports whether score reaches threshold of total.
func Passed(score, total int, threshold float64) bool {
	if total <= 0 {
		return false
	}
	return float64(score) >= float64(total)*threshold
}
