package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

const notAnswered = "Not answered"

// Result is the score of one submission as shown to its student.
type Result struct {
	QuizID     string   `json:"quizId"`
	Score      int      `json:"score"`
	Total      int      `json:"totalQuestions"`
	Percentage string   `json:"percentage"`
	Answers    []string `json:"answers"`
	Feedback   string   `json:"feedback,omitempty"`
}

// RecentResult is a row of the student's recent results list.
type RecentResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Score  string `json:"score"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// QuestionResult compares one answer against the key.
type QuestionResult struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	StudentAnswer string   `json:"studentAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
}

// QuizDetails is the per-question breakdown of a published submission.
type QuizDetails struct {
	Title          string           `json:"title"`
	Score          string           `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectAnswers int              `json:"correctAnswers"`
	Feedback       string           `json:"feedback,omitempty"`
	Questions      []QuestionResult `json:"questions"`
}

// visibleSubmission returns the caller's submission only once its result is published.
func visibleSubmission(caller Caller, quiz *domain.Quiz) (*domain.Submission, error) {
	if err := caller.require(domain.RoleStudent); err != nil {
		return nil, err
	}
	sub, ok := quiz.SubmissionBy(caller.ID)
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	if !sub.ResultPublished {
		return nil, domain.ErrResultsNotPublished
	}
	return sub, nil
}

func percentLabel(score, total int) string {
	return fmt.Sprintf("%d%%", grading.Percentage(score, total))
}

// Result returns the caller's score and answers for a quiz.
func (s *QuizService) Result(ctx context.Context, caller Caller, quizID string) (Result, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Result{}, upstream("get quiz", err)
	}
	sub, err := visibleSubmission(caller, &quiz)
	if err != nil {
		return Result{}, err
	}
	return Result{
		QuizID:     quiz.ID,
		Score:      sub.Score,
		Total:      len(quiz.Questions),
		Percentage: percentLabel(sub.Score, len(quiz.Questions)),
		Answers:    sub.Answers,
		Feedback:   sub.Feedback,
	}, nil
}

// RecentResults lists the caller's published results, newest quiz first.
func (s *QuizService) RecentResults(ctx context.Context, caller Caller) ([]RecentResult, error) {
	if err := caller.require(domain.RoleStudent); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.FindQuizzes(ctx, domain.QuizFilter{StudentID: caller.ID})
	if err != nil {
		return nil, upstream("find quizzes", err)
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})

	results := make([]RecentResult, 0, len(quizzes))
	for i := range quizzes {
		q := &quizzes[i]
		sub, ok := q.SubmissionBy(caller.ID)
		if !ok || !sub.ResultPublished {
			continue
		}
		status := "failed"
		if grading.Passed(sub.Score, len(q.Questions), s.passThreshold) {
			status = "passed"
		}
		results = append(results, RecentResult{
			ID:     q.ID,
			Title:  q.Title,
			Score:  percentLabel(sub.Score, len(q.Questions)),
			Date:   q.CreatedAt.UTC().Format(time.DateOnly),
			Status: status,
		})
	}
	return results, nil
}

// Details breaks a published submission down per question.
func (s *QuizService) Details(ctx context.Context, caller Caller, quizID string) (QuizDetails, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizDetails{}, upstream("get quiz", err)
	}
	sub, err := visibleSubmission(caller, &quiz)
	if err != nil {
		return QuizDetails{}, err
	}

	questions := make([]QuestionResult, len(quiz.Questions))
	for i, q := range quiz.Questions {
		answer := ""
		if i < len(sub.Answers) {
			answer = sub.Answers[i]
		}
		shown := answer
		if shown == "" {
			shown = notAnswered
		}
		questions[i] = QuestionResult{
			QuestionText:  q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			StudentAnswer: shown,
			IsCorrect:     grading.Correct(q, answer),
		}
	}
	return QuizDetails{
		Title:          quiz.Title,
		Score:          percentLabel(sub.Score, len(quiz.Questions)),
		TotalQuestions: len(quiz.Questions),
		CorrectAnswers: sub.Score,
		Feedback:       sub.Feedback,
		Questions:      questions,
	}, nil
}
