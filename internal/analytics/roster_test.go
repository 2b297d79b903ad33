package analytics_test

import (
	"testing"
	"time"

	"quizdesk/internal/analytics"
	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

func TestRoster(t *testing.T) {
	stale := quiz("q1", "Math", 10, sub("s1", 8), sub("s2", 2))
	stale.CreatedAt = base.AddDate(0, 0, -20)
	fresh := quiz("q2", "Math", 5, sub("s1", 5))
	fresh.CreatedAt = base.AddDate(0, 0, -1)

	dir := analytics.NewDirectory([]domain.User{
		{ID: "s1", Name: "Ann", Email: "ann@example.com"},
	})
	roster := analytics.Roster(analytics.Attempts([]domain.Quiz{stale, fresh}), dir, base)
	if len(roster) != 2 {
		t.Fatalf("expected 2 students, got %+v", roster)
	}

	ann := roster[0]
	if ann.ID != "s1" || ann.QuizzesTaken != 2 || ann.AverageScore != 87 {
		t.Fatalf("unexpected roster entry %+v", ann)
	}
	if ann.Status != analytics.StatusActive || !ann.LastActivity.Equal(fresh.CreatedAt) {
		t.Fatalf("expected active with last activity %s, got %+v", fresh.CreatedAt, ann)
	}
	if ann.Email != "ann@example.com" {
		t.Fatalf("expected email to resolve, got %q", ann.Email)
	}

	other := roster[1]
	if other.Name != analytics.UnknownName || other.Status != analytics.StatusInactive || other.AverageScore != 20 {
		t.Fatalf("unexpected second entry %+v", other)
	}
}

func TestStudentStatsIncludesIdleStudents(t *testing.T) {
	users := []domain.User{
		{ID: "s1", Name: "bea", Role: domain.RoleStudent},
		{ID: "s2", Name: "Abe", Role: domain.RoleStudent},
		{ID: "s3", Name: "Cy", Role: domain.RoleStudent},
		{ID: "t1", Name: "Tess", Role: domain.RoleTeacher},
	}
	attempts := analytics.Attempts([]domain.Quiz{quiz("q1", "", 4, sub("s3", 3))})

	stats := analytics.StudentStats(users, attempts)
	if len(stats) != 3 {
		t.Fatalf("expected only students, got %+v", stats)
	}
	if stats[0].ID != "s3" || stats[0].AverageScore != 75 || stats[0].LastActivity == nil {
		t.Fatalf("expected Cy first with 75, got %+v", stats[0])
	}
	if stats[1].Name != "Abe" || stats[2].Name != "bea" {
		t.Fatalf("expected ties ordered by name, got %+v", stats)
	}
	if stats[1].LastActivity != nil || stats[1].QuizzesTaken != 0 {
		t.Fatalf("idle student must have no activity, got %+v", stats[1])
	}
}

func TestTeacherStats(t *testing.T) {
	users := []domain.User{
		{ID: "t1", Name: "Tess", Role: domain.RoleTeacher},
		{ID: "t2", Name: "Theo", Role: domain.RoleTeacher},
	}
	a := quiz("a", "", 1)
	a.CreatedBy = "t2"
	a.IsPublished = true
	b := quiz("b", "", 1)
	b.CreatedBy = "t2"
	b.CreatedAt = base.Add(time.Hour)

	stats := analytics.TeacherStats(users, []domain.Quiz{a, b})
	if stats[0].ID != "t2" || stats[0].QuizzesCreated != 2 || stats[0].Published != 1 {
		t.Fatalf("unexpected first teacher %+v", stats[0])
	}
	if !stats[0].LastActivity.Equal(b.CreatedAt) {
		t.Fatalf("expected last activity %s, got %s", b.CreatedAt, stats[0].LastActivity)
	}
	if stats[1].QuizzesCreated != 0 || stats[1].LastActivity != nil {
		t.Fatalf("expected idle teacher, got %+v", stats[1])
	}
}

func TestPerformanceAndActivityLog(t *testing.T) {
	q1 := quiz("q1", "Math", 5, domain.Submission{StudentID: "s1", Score: 3, SubmittedAt: base.Add(-time.Hour)})
	q2 := quiz("q2", "Art", 5,
		domain.Submission{StudentID: "s1", Score: 2, SubmittedAt: base},
		domain.Submission{StudentID: "s2", Score: 5, SubmittedAt: base.Add(-2 * time.Hour)},
	)
	attempts := analytics.Attempts([]domain.Quiz{q1, q2})
	dir := analytics.NewDirectory([]domain.User{{ID: "s1", Name: "Ann"}})

	perf := analytics.PerformanceOf("s1", attempts, dir)
	if perf.QuizzesTaken != 2 || perf.AverageScore != 50 || perf.Name != "Ann" {
		t.Fatalf("unexpected performance %+v", perf)
	}
	if perf.Results[0].QuizID != "q2" || perf.Results[0].Percentage != 40 {
		t.Fatalf("expected newest result first, got %+v", perf.Results)
	}

	log := analytics.ActivityLog(attempts, dir, 2, grading.DefaultPassThreshold)
	if len(log) != 2 {
		t.Fatalf("expected limit to apply, got %d entries", len(log))
	}
	if log[0].QuizID != "q2" || log[0].StudentID != "s1" || log[0].Passed {
		t.Fatalf("unexpected first log entry %+v", log[0])
	}
	if log[1].QuizID != "q1" || !log[1].Passed {
		t.Fatalf("unexpected second log entry %+v", log[1])
	}
}
