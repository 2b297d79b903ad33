// Package memory provides mutex-guarded in-process stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/domain"
)

// QuizRepository keeps quiz documents in a map. Values are deep-copied on the
// way in and out so callers never share slices with the store.
type QuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	codes   map[string]string
}

func NewQuizRepository(seed ...domain.Quiz) *QuizRepository {
	r := &QuizRepository{
		quizzes: make(map[string]domain.Quiz),
		codes:   make(map[string]string),
	}
	for _, q := range seed {
		r.quizzes[q.ID] = cloneQuiz(q)
		r.codes[q.Code] = q.ID
	}
	return r
}

func (r *QuizRepository) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[quiz.Code]; ok {
		return domain.ErrDuplicateCode
	}
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	r.codes[quiz.Code] = quiz.ID
	return nil
}

func (r *QuizRepository) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (r *QuizRepository) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	r.mu.RLock()
	id, ok := r.codes[code]
	r.mu.RUnlock()
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return r.GetQuiz(ctx, id)
}

// FindQuizzes returns matching quizzes, newest first.
func (r *QuizRepository) FindQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	r.mu.RLock()
	out := make([]domain.Quiz, 0, len(r.quizzes))
	for _, q := range r.quizzes {
		if matches(q, filter) {
			out = append(out, cloneQuiz(q))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(q domain.Quiz, f domain.QuizFilter) bool {
	if f.CreatedBy != "" && q.CreatedBy != f.CreatedBy {
		return false
	}
	if f.PublishedOnly && !q.IsPublished {
		return false
	}
	if f.StudentID != "" {
		if _, ok := q.SubmissionBy(f.StudentID); !ok {
			return false
		}
	}
	return true
}

// UpdateQuiz runs mutate on a copy under the write lock and stores the copy
// only when mutate succeeds.
func (r *QuizRepository) UpdateQuiz(_ context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	next := cloneQuiz(current)
	if err := mutate(&next); err != nil {
		return domain.Quiz{}, err
	}
	next.ID = current.ID
	if next.Code != current.Code {
		if owner, taken := r.codes[next.Code]; taken && owner != quizID {
			return domain.Quiz{}, domain.ErrDuplicateCode
		}
		delete(r.codes, current.Code)
		r.codes[next.Code] = quizID
	}
	r.quizzes[quizID] = cloneQuiz(next)
	return next, nil
}

func (r *QuizRepository) DeleteQuiz(_ context.Context, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.quizzes, quizID)
	delete(r.codes, quiz.Code)
	return nil
}

func (r *QuizRepository) DeleteQuizzesByCreator(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, q := range r.quizzes {
		if q.CreatedBy == userID {
			delete(r.quizzes, id)
			delete(r.codes, q.Code)
			removed++
		}
	}
	return removed, nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	if q.Questions != nil {
		out.Questions = make([]domain.Question, len(q.Questions))
		for i, question := range q.Questions {
			question.Options = append([]string(nil), question.Options...)
			out.Questions[i] = question
		}
	}
	if q.Submissions != nil {
		out.Submissions = make([]domain.Submission, len(q.Submissions))
		for i, s := range q.Submissions {
			s.Answers = append([]string(nil), s.Answers...)
			if s.Location != nil {
				loc := *s.Location
				s.Location = &loc
			}
			out.Submissions[i] = s
		}
	}
	if q.Geofence != nil {
		g := *q.Geofence
		out.Geofence = &g
	}
	return out
}
