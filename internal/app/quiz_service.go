package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
	"quizdesk/internal/monitoring"
)

const codeAttempts = 5

// QuizService holds the quiz lifecycle: authoring, publishing, submitting and
// releasing results.
type QuizService struct {
	quizzes       QuizRepository
	feedback      *FeedbackService
	distance      grading.DistanceFunc
	now           func() time.Time
	newCode       func() string
	passThreshold float64
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithDistance overrides the geofence distance function.
func WithDistance(fn grading.DistanceFunc) Option {
	return func(s *QuizService) { s.distance = fn }
}

// WithFeedback attaches generated feedback to new submissions.
func WithFeedback(f *FeedbackService) Option {
	return func(s *QuizService) { s.feedback = f }
}

// WithPassThreshold sets the share of correct answers needed to pass.
func WithPassThreshold(t float64) Option {
	return func(s *QuizService) {
		if t > 0 && t <= 1 {
			s.passThreshold = t
		}
	}
}

// WithCodeGenerator overrides how join codes are generated.
func WithCodeGenerator(fn func() string) Option {
	return func(s *QuizService) { s.newCode = fn }
}

func NewQuizService(quizzes QuizRepository, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:       quizzes,
		distance:      grading.Haversine,
		now:           time.Now,
		newCode:       randomCode,
		passThreshold: grading.DefaultPassThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// CreateQuiz stores a new unpublished quiz owned by the calling teacher. A join
// code is generated when none is given.
func (s *QuizService) CreateQuiz(ctx context.Context, caller Caller, in QuizInput) (domain.Quiz, error) {
	if err := caller.require(domain.RoleTeacher); err != nil {
		return domain.Quiz{}, err
	}
	in.normalize()
	if in.TimeLimit == 0 {
		in.TimeLimit = DefaultTimeLimit
	}
	if err := validateQuiz(in); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Topic:     strings.TrimSpace(in.Topic),
		Questions: in.questions(),
		CreatedBy: caller.ID,
		TimeLimit: in.TimeLimit,
		Geofence:  in.geofence(),
		CreatedAt: s.now().UTC(),
	}

	if in.Code != "" {
		quiz.Code = in.Code
		if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
			return domain.Quiz{}, upstream("create quiz", err)
		}
		return quiz, nil
	}
	for attempt := 0; ; attempt++ {
		quiz.Code = s.newCode()
		err := s.quizzes.CreateQuiz(ctx, quiz)
		if err == nil {
			return quiz, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) || attempt+1 >= codeAttempts {
			return domain.Quiz{}, upstream("create quiz", err)
		}
	}
}

// MyQuizzes lists the quizzes authored by the calling teacher.
func (s *QuizService) MyQuizzes(ctx context.Context, caller Caller) ([]domain.Quiz, error) {
	if err := caller.require(domain.RoleTeacher); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.FindQuizzes(ctx, domain.QuizFilter{CreatedBy: caller.ID})
	return quizzes, upstream("find quizzes", err)
}

// MyQuiz returns one quiz of the calling teacher.
func (s *QuizService) MyQuiz(ctx context.Context, caller Caller, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, upstream("get quiz", err)
	}
	if err := owns(caller, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz edits a quiz of the calling teacher. Questions cannot change once
// any student has submitted.
func (s *QuizService) UpdateQuiz(ctx context.Context, caller Caller, quizID string, in QuizInput) (domain.Quiz, error) {
	in.normalize()
	if in.TimeLimit == 0 {
		in.TimeLimit = DefaultTimeLimit
	}
	if err := validateQuiz(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		if err := owns(caller, *q); err != nil {
			return err
		}
		questions := in.questions()
		if len(q.Submissions) > 0 && !reflect.DeepEqual(questions, q.Questions) {
			return fmt.Errorf("%w: questions cannot change after students have submitted", domain.ErrValidation)
		}
		q.Title = strings.TrimSpace(in.Title)
		q.Topic = strings.TrimSpace(in.Topic)
		q.Questions = questions
		q.TimeLimit = in.TimeLimit
		q.Geofence = in.geofence()
		if in.Code != "" {
			q.Code = in.Code
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, upstream("update quiz", err)
	}
	return quiz, nil
}

// DeleteQuiz removes a quiz of the calling teacher with all its submissions.
func (s *QuizService) DeleteQuiz(ctx context.Context, caller Caller, quizID string) error {
	if _, err := s.MyQuiz(ctx, caller, quizID); err != nil {
		return err
	}
	return upstream("delete quiz", s.quizzes.DeleteQuiz(ctx, quizID))
}

// PublishQuiz makes a quiz joinable by code.
func (s *QuizService) PublishQuiz(ctx context.Context, caller Caller, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		if err := owns(caller, *q); err != nil {
			return err
		}
		if q.IsPublished {
			return domain.ErrAlreadyPublished
		}
		if len(q.Questions) == 0 {
			return fmt.Errorf("%w: quiz has no questions", domain.ErrValidation)
		}
		q.IsPublished = true
		return nil
	})
	if err != nil {
		return domain.Quiz{}, upstream("publish quiz", err)
	}
	log.Info().Str("quizID", quizID).Str("teacherID", caller.ID).Msg("quiz published")
	return quiz, nil
}

// PublishResults reveals every submission of the quiz to its student in a
// single write. A second call fails with ErrAlreadyPublished.
func (s *QuizService) PublishResults(ctx context.Context, caller Caller, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		if err := owns(caller, *q); err != nil {
			return err
		}
		if q.ResultsPublished {
			return domain.ErrAlreadyPublished
		}
		for i := range q.Submissions {
			q.Submissions[i].ResultPublished = true
		}
		q.ResultsPublished = true
		return nil
	})
	if err != nil {
		return domain.Quiz{}, upstream("publish results", err)
	}
	log.Info().Str("quizID", quizID).Int("submissions", len(quiz.Submissions)).Msg("quiz results published")
	return quiz, nil
}

// JoinByCode returns a published quiz by its join code.
func (s *QuizService) JoinByCode(ctx context.Context, code string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuizByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.Quiz{}, upstream("get quiz by code", err)
	}
	if !quiz.IsPublished {
		return domain.Quiz{}, domain.ErrQuizNotPublished
	}
	return quiz, nil
}

// PublishedQuizzes lists every quiz open to students.
func (s *QuizService) PublishedQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.quizzes.FindQuizzes(ctx, domain.QuizFilter{PublishedOnly: true})
	return quizzes, upstream("find published quizzes", err)
}

// Receipt acknowledges a stored submission without revealing its score.
type Receipt struct {
	QuizID      string    `json:"quizId"`
	Answered    int       `json:"answered"`
	Total       int       `json:"totalQuestions"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submit grades the caller's answers and stores the submission hidden from the
// student. The duplicate check and the insert happen in one store update.
// Feedback generation runs afterwards and never affects the stored score.
func (s *QuizService) Submit(ctx context.Context, caller Caller, quizID string, in SubmissionInput) (Receipt, error) {
	if err := caller.require(domain.RoleStudent); err != nil {
		return Receipt{}, err
	}
	if in.Answers == nil {
		return Receipt{}, fmt.Errorf("%w: answers must be an array", domain.ErrValidation)
	}

	submittedAt := s.now().UTC()
	var score int
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		if !q.IsPublished {
			return domain.ErrQuizNotPublished
		}
		if q.ResultsPublished {
			return domain.ErrResultsReleased
		}
		if _, ok := q.SubmissionBy(caller.ID); ok {
			return domain.ErrAlreadySubmitted
		}
		if len(in.Answers) != len(q.Questions) {
			return domain.ErrIncompleteSubmission
		}
		if err := s.checkGeofence(q.Geofence, in.Location); err != nil {
			return err
		}
		score = grading.Grade(q.Questions, in.Answers)
		q.Submissions = append(q.Submissions, domain.Submission{
			StudentID:   caller.ID,
			Answers:     append([]string(nil), in.Answers...),
			Score:       score,
			SubmittedAt: submittedAt,
			Location:    in.Location,
		})
		return nil
	})
	if err != nil {
		return Receipt{}, upstream("submit quiz", err)
	}
	monitoring.SubmissionsGraded.Inc()

	answered := 0
	for _, a := range in.Answers {
		if strings.TrimSpace(a) != "" {
			answered++
		}
	}
	receipt := Receipt{QuizID: quiz.ID, Answered: answered, Total: len(quiz.Questions), SubmittedAt: submittedAt}

	if s.feedback.Enabled() {
		s.attachFeedback(ctx, quiz, caller.ID, in.Answers, score)
	}
	return receipt, nil
}

func (s *QuizService) checkGeofence(fence *domain.Geofence, at *domain.Location) error {
	if fence == nil || !fence.Enabled {
		return nil
	}
	if at == nil {
		return fmt.Errorf("%w: location is required for this quiz", domain.ErrValidation)
	}
	if s.distance(fence.Latitude, fence.Longitude, at.Latitude, at.Longitude) > fence.Radius {
		return domain.ErrTooFar
	}
	return nil
}

// attachFeedback is best effort: failures are logged and counted only.
func (s *QuizService) attachFeedback(ctx context.Context, quiz domain.Quiz, studentID string, answers []string, score int) {
	text, err := s.feedback.Generate(ctx, quiz, answers, score)
	if err == nil && text != "" {
		_, err = s.quizzes.UpdateQuiz(ctx, quiz.ID, func(q *domain.Quiz) error {
			sub, ok := q.SubmissionBy(studentID)
			if !ok {
				return domain.ErrSubmissionNotFound
			}
			sub.Feedback = text
			return nil
		})
	}
	if err != nil {
		monitoring.FeedbackFailures.Inc()
		log.Warn().Err(err).Str("quizID", quiz.ID).Str("studentID", studentID).Msg("feedback not attached")
	}
}

func owns(caller Caller, quiz domain.Quiz) error {
	if err := caller.require(domain.RoleTeacher); err != nil {
		return err
	}
	if quiz.CreatedBy != caller.ID {
		return domain.ErrForbidden
	}
	return nil
}
