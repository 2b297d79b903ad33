package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
)

func TestCreateQuizDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithClock(clock))

	quiz, err := svc.CreateQuiz(ctx, teacher, fiveQuestionInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.TimeLimit != app.DefaultTimeLimit || quiz.IsPublished || quiz.CreatedBy != "t1" || !quiz.CreatedAt.Equal(base) {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	bad := fiveQuestionInput()
	bad.Code = ""
	bad.Questions[0].CorrectAnswer = "Z"
	if _, err := svc.CreateQuiz(ctx, teacher, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for foreign answer key, got %v", err)
	}

	bad = fiveQuestionInput()
	bad.TimeLimit = 301
	if _, err := svc.CreateQuiz(ctx, teacher, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for time limit, got %v", err)
	}

	if _, err := svc.CreateQuiz(ctx, student, fiveQuestionInput()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected students to be refused, got %v", err)
	}
	if _, err := svc.CreateQuiz(ctx, teacher, fiveQuestionInput()); !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected duplicate code, got %v", err)
	}
}

func TestPaddedAnswerKeyCanBeAnswered(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithClock(clock))
	in := app.QuizInput{
		Title: " Padded ",
		Code:  "PAD001",
		Questions: []app.QuestionInput{
			{Text: "pick A", Options: []string{" A ", "B"}, CorrectAnswer: " A "},
			{Text: "pick B", Options: []string{"A", "B\t"}, CorrectAnswer: "B"},
		},
	}
	quiz, err := svc.CreateQuiz(ctx, teacher, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.Title != "Padded" || quiz.Questions[0].CorrectAnswer != "A" || quiz.Questions[1].Options[1] != "B" {
		t.Fatalf("expected trimmed questions, got %+v", quiz.Questions)
	}
	if in.Questions[0].Options[0] != " A " {
		t.Fatal("caller input must not be rewritten")
	}
	if _, err := svc.PublishQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", " B "}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.PublishResults(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish results: %v", err)
	}
	res, err := svc.Result(ctx, student, quiz.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Score != 2 {
		t.Fatalf("expected both padded keys to match, got %d", res.Score)
	}
}

func TestCreateQuizRetriesGeneratedCode(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AAAA11", "AAAA11", "BBBB22"}
	next := 0
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithCodeGenerator(func() string {
		c := codes[next]
		next++
		return c
	}))

	in := fiveQuestionInput()
	in.Code = ""
	if _, err := svc.CreateQuiz(ctx, teacher, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	quiz, err := svc.CreateQuiz(ctx, teacher, in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if quiz.Code != "BBBB22" {
		t.Fatalf("expected regenerated code, got %q", quiz.Code)
	}
}

func TestPublishTwiceRejected(t *testing.T) {
	svc := app.NewQuizService(memory.NewQuizRepository())
	quiz := publishedQuiz(t, svc)

	if _, err := svc.PublishQuiz(context.Background(), teacher, quiz.ID); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
	other := app.Caller{ID: "t2", Role: domain.RoleTeacher}
	if _, err := svc.PublishResults(context.Background(), other, quiz.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected non-owner to be refused, got %v", err)
	}
}

func TestSubmitGradesFiveQuestionExample(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithClock(clock))
	quiz := publishedQuiz(t, svc)

	receipt, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", "B", "C", "A", ""}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Answered != 4 || receipt.Total != 5 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	if _, err := svc.Result(ctx, student, quiz.ID); !errors.Is(err, domain.ErrResultsNotPublished) {
		t.Fatalf("expected hidden result, got %v", err)
	}
	if _, err := svc.Details(ctx, student, quiz.ID); !errors.Is(err, domain.ErrResultsNotPublished) {
		t.Fatalf("expected hidden details, got %v", err)
	}
	recent, err := svc.RecentResults(ctx, student)
	if err != nil || len(recent) != 0 {
		t.Fatalf("expected no visible results yet, got %v %v", recent, err)
	}

	if _, err := svc.PublishResults(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish results: %v", err)
	}
	if _, err := svc.PublishResults(ctx, teacher, quiz.ID); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected second results publish rejected, got %v", err)
	}

	res, err := svc.Result(ctx, student, quiz.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Score != 3 || res.Percentage != "60%" {
		t.Fatalf("expected 3 and 60%%, got %+v", res)
	}

	recent, err = svc.RecentResults(ctx, student)
	if err != nil || len(recent) != 1 {
		t.Fatalf("recent results: %v %v", recent, err)
	}
	if recent[0].Status != "passed" || recent[0].Score != "60%" || recent[0].Date != "2024-03-20" {
		t.Fatalf("unexpected recent result %+v", recent[0])
	}

	details, err := svc.Details(ctx, student, quiz.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details.CorrectAnswers != 3 || details.Questions[4].StudentAnswer != "Not answered" || details.Questions[4].IsCorrect {
		t.Fatalf("unexpected details %+v", details)
	}
	if !details.Questions[0].IsCorrect || details.Questions[3].IsCorrect {
		t.Fatalf("unexpected verdicts %+v", details.Questions)
	}
}

func TestSubmitRejections(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository())

	draft, err := svc.CreateQuiz(ctx, teacher, fiveQuestionInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	answers := app.SubmissionInput{Answers: []string{"A", "B", "C", "D", "A"}}
	if _, err := svc.Submit(ctx, student, draft.ID, answers); !errors.Is(err, domain.ErrQuizNotPublished) {
		t.Fatalf("expected unpublished rejection, got %v", err)
	}
	if _, err := svc.PublishQuiz(ctx, teacher, draft.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if _, err := svc.Submit(ctx, student, draft.ID, app.SubmissionInput{Answers: []string{"A"}}); !errors.Is(err, domain.ErrIncompleteSubmission) {
		t.Fatalf("expected incomplete, got %v", err)
	}
	if _, err := svc.Submit(ctx, student, draft.ID, app.SubmissionInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected missing answers to fail validation, got %v", err)
	}
	if _, err := svc.Submit(ctx, teacher, draft.ID, answers); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected teachers to be refused, got %v", err)
	}
	if _, err := svc.Submit(ctx, student, draft.ID, answers); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, student, draft.ID, answers); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	if _, err := svc.PublishResults(ctx, teacher, draft.ID); err != nil {
		t.Fatalf("publish results: %v", err)
	}
	late := app.Caller{ID: "s2", Role: domain.RoleStudent}
	_, err = svc.Submit(ctx, late, draft.ID, answers)
	if !errors.Is(err, domain.ErrResultsReleased) || errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected late submission rejected as released, got %v", err)
	}
	if _, err := svc.Result(ctx, late, draft.ID); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected no submission, got %v", err)
	}
}

func TestHiddenSubmissionStaysHiddenAfterQuizRelease(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewQuizRepository(domain.Quiz{
		ID: "q1", Title: "Cells", Code: "BIO001", CreatedBy: "t1",
		IsPublished: true, ResultsPublished: true, CreatedAt: base,
		Questions: []domain.Question{
			{Text: "one", Options: []string{"A", "B"}, CorrectAnswer: "A"},
			{Text: "two", Options: []string{"A", "B"}, CorrectAnswer: "B"},
		},
		Submissions: []domain.Submission{
			{StudentID: "s1", Answers: []string{"A", "B"}, Score: 2, SubmittedAt: base, ResultPublished: false},
		},
	})
	svc := app.NewQuizService(repo, app.WithClock(clock))

	if _, err := svc.Result(ctx, student, "q1"); !errors.Is(err, domain.ErrResultsNotPublished) {
		t.Fatalf("expected result hidden, got %v", err)
	}
	if _, err := svc.Details(ctx, student, "q1"); !errors.Is(err, domain.ErrResultsNotPublished) {
		t.Fatalf("expected details hidden, got %v", err)
	}
	recent, err := svc.RecentResults(ctx, student)
	if err != nil {
		t.Fatalf("recent results: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected no visible results, got %+v", recent)
	}
}

func TestConcurrentDuplicateSubmitStoresOne(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewQuizRepository()
	svc := app.NewQuizService(repo)
	quiz := publishedQuiz(t, svc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", "B", "C", "D", "A"}})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrAlreadySubmitted) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := repo.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if accepted != 1 || len(stored.Submissions) != 1 {
		t.Fatalf("expected exactly one submission, accepted=%d stored=%d", accepted, len(stored.Submissions))
	}
}

func TestSubmitGeofence(t *testing.T) {
	ctx := context.Background()
	distance := 500.0
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithDistance(func(_, _, _, _ float64) float64 {
		return distance
	}))
	in := fiveQuestionInput()
	in.Geofence = &app.GeofenceInput{Enabled: true, Latitude: 10, Longitude: 20, Radius: 100}
	quiz, err := svc.CreateQuiz(ctx, teacher, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.PublishQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	answers := []string{"A", "B", "C", "D", "A"}
	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: answers}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected location required, got %v", err)
	}
	loc := &domain.Location{Latitude: 10.01, Longitude: 20.01}
	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: answers, Location: loc}); !errors.Is(err, domain.ErrTooFar) {
		t.Fatalf("expected too far, got %v", err)
	}
	distance = 50
	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: answers, Location: loc}); err != nil {
		t.Fatalf("expected submission inside fence, got %v", err)
	}
}

func TestFeedbackFailureKeepsScore(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewQuizRepository()
	gen := &fakeGenerator{err: errors.New("rate limited")}
	svc := app.NewQuizService(repo, app.WithFeedback(app.NewFeedbackService(gen)))
	quiz := publishedQuiz(t, svc)

	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", "B", "C", "A", ""}}); err != nil {
		t.Fatalf("submit should succeed despite feedback failure: %v", err)
	}
	stored, _ := repo.GetQuiz(ctx, quiz.ID)
	sub, ok := stored.SubmissionBy("s1")
	if !ok || sub.Score != 3 || sub.Feedback != "" {
		t.Fatalf("unexpected stored submission %+v", sub)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "Unit 3 review") {
		t.Fatalf("unexpected prompts %v", gen.prompts)
	}
}

func TestFeedbackAttachedWhenGenerated(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{text: "  Review question four.  "}
	svc := app.NewQuizService(memory.NewQuizRepository(), app.WithFeedback(app.NewFeedbackService(gen)))
	quiz := publishedQuiz(t, svc)

	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", "B", "C", "A", ""}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.PublishResults(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish results: %v", err)
	}
	res, err := svc.Result(ctx, student, quiz.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Feedback != "Review question four." || res.Score != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUpdateQuizFreezesQuestionsAfterSubmissions(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository())
	quiz := publishedQuiz(t, svc)

	in := fiveQuestionInput()
	in.Title = "Renamed"
	updated, err := svc.UpdateQuiz(ctx, teacher, quiz.ID, in)
	if err != nil || updated.Title != "Renamed" {
		t.Fatalf("update before submissions: %+v %v", updated, err)
	}

	if _, err := svc.Submit(ctx, student, quiz.ID, app.SubmissionInput{Answers: []string{"A", "B", "C", "D", "A"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	in.Questions[0].CorrectAnswer = "B"
	if _, err := svc.UpdateQuiz(ctx, teacher, quiz.ID, in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected frozen questions, got %v", err)
	}
	in = fiveQuestionInput()
	in.Title = "Still editable"
	if _, err := svc.UpdateQuiz(ctx, teacher, quiz.ID, in); err != nil {
		t.Fatalf("title edit after submissions: %v", err)
	}
}

func TestOwnershipAndJoin(t *testing.T) {
	ctx := context.Background()
	svc := app.NewQuizService(memory.NewQuizRepository())
	quiz := publishedQuiz(t, svc)
	other := app.Caller{ID: "t2", Role: domain.RoleTeacher}

	if _, err := svc.MyQuiz(ctx, other, quiz.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.DeleteQuiz(ctx, other, quiz.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	joined, err := svc.JoinByCode(ctx, " SCI300 ")
	if err != nil || joined.ID != quiz.ID {
		t.Fatalf("join: %+v %v", joined, err)
	}
	list, err := svc.PublishedQuizzes(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("published list: %v %v", list, err)
	}
	if err := svc.DeleteQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.JoinByCode(ctx, "SCI300"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStoreFailuresWrapUpstream(t *testing.T) {
	svc := app.NewQuizService(brokenRepo{memory.NewQuizRepository()})
	_, err := svc.MyQuiz(context.Background(), teacher, "q")
	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, errStoreDown) {
		t.Fatalf("expected upstream wrap, got %v", err)
	}
	_, err = svc.PublishedQuizzes(context.Background())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream wrap, got %v", err)
	}
}
