package analytics_test

import (
	"testing"
	"time"

	"quizdesk/internal/analytics"
	"quizdesk/internal/domain"
)

func TestWeeklyActivity(t *testing.T) {
	// base is a Wednesday.
	current := quiz("q1", "", 2,
		domain.Submission{StudentID: "s1", SubmittedAt: base.Add(-24 * time.Hour)},
		domain.Submission{StudentID: "s2"},
	)
	old := quiz("q2", "", 2,
		domain.Submission{StudentID: "s1", SubmittedAt: base.Add(-2 * time.Hour)},
	)
	old.CreatedAt = base.AddDate(0, 0, -8)

	days := analytics.WeeklyActivity([]domain.Quiz{current, old}, base)
	byName := map[string]analytics.DayActivity{}
	for _, d := range days {
		byName[d.Name] = d
	}
	if byName["Wed"].Quizzes != 1 {
		t.Fatalf("expected 1 quiz on Wed, got %+v", byName["Wed"])
	}
	if byName["Wed"].Submissions != 2 {
		t.Fatalf("expected 2 submissions on Wed, got %+v", byName["Wed"])
	}
	if byName["Tue"].Submissions != 1 {
		t.Fatalf("expected 1 submission on Tue, got %+v", byName["Tue"])
	}
	total := 0
	for _, d := range days {
		total += d.Quizzes
	}
	if total != 1 {
		t.Fatalf("quizzes outside the window must not count, got %d", total)
	}
}

func TestMonthlyGrowth(t *testing.T) {
	users := []domain.User{
		{ID: "t1", Role: domain.RoleTeacher, CreatedAt: time.Date(2023, time.September, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "s1", Role: domain.RoleStudent, CreatedAt: time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC)},
		{ID: "s2", Role: domain.RoleStudent, CreatedAt: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "a1", Role: domain.RoleAdmin, CreatedAt: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	growth := analytics.MonthlyGrowth(users, base)
	if len(growth) != 6 {
		t.Fatalf("expected 6 months, got %d", len(growth))
	}
	names := []string{"Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}
	for i, g := range growth {
		if g.Name != names[i] {
			t.Fatalf("month %d: expected %s, got %s", i, names[i], g.Name)
		}
		if g.Teachers != 1 {
			t.Fatalf("month %s: expected 1 teacher, got %d", g.Name, g.Teachers)
		}
		if i > 0 && (g.Students < growth[i-1].Students || g.Teachers < growth[i-1].Teachers) {
			t.Fatalf("growth must be monotonic: %+v", growth)
		}
	}
	if growth[2].Students != 0 || growth[3].Students != 1 || growth[5].Students != 2 {
		t.Fatalf("unexpected student counts %+v", growth)
	}
}

func TestRecentActivityOrder(t *testing.T) {
	users := []domain.User{
		{ID: "t1", Name: "Tess", Role: domain.RoleTeacher, CreatedAt: base.AddDate(0, 0, -100)},
		{ID: "u1", Name: "Uma", Role: domain.RoleStudent, CreatedAt: base.Add(-time.Hour)},
		{ID: "u2", Name: "Ugo", Role: domain.RoleStudent, CreatedAt: base.Add(-48 * time.Hour)},
		{ID: "u3", Name: "Udo", Role: domain.RoleStudent, CreatedAt: base.Add(-72 * time.Hour)},
		{ID: "u4", Name: "Uli", Role: domain.RoleStudent, CreatedAt: base.Add(-96 * time.Hour)},
	}
	qa := quiz("qa", "", 1)
	qa.CreatedAt = base.Add(-30 * time.Minute)
	qb := quiz("qb", "", 1)
	qb.CreatedAt = base.Add(-5 * time.Hour)
	qc := quiz("qc", "", 1)
	qc.CreatedAt = base.AddDate(0, 0, -10)

	got := analytics.RecentActivity(users, []domain.Quiz{qc, qb, qa}, base)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %+v", got)
	}
	wantIDs := []string{"qa", "u1", "qb", "u2"}
	wantTimes := []string{"Just now", "1 hour ago", "5 hours ago", "2 days ago"}
	for i, a := range got {
		if a.ID != wantIDs[i] || a.Time != wantTimes[i] {
			t.Fatalf("entry %d: expected %s %q, got %+v", i, wantIDs[i], wantTimes[i], a)
		}
	}
	if got[0].Message != `Tess created "Quiz qa"` {
		t.Fatalf("unexpected quiz message %q", got[0].Message)
	}
	if got[1].Message != "New student Uma registered" || got[1].Type != analytics.ActivityUser {
		t.Fatalf("unexpected user entry %+v", got[1])
	}
}

func TestTimeAgo(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Minute, "Just now"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{50 * time.Hour, "2 days ago"},
	}
	for _, c := range cases {
		if got := analytics.TimeAgo(base.Add(-c.ago), base); got != c.want {
			t.Fatalf("TimeAgo(%s) = %q, want %q", c.ago, got, c.want)
		}
	}
}

func TestCountsSince(t *testing.T) {
	users := []domain.User{
		{ID: "1", CreatedAt: base.AddDate(0, 0, -40)},
		{ID: "2", CreatedAt: base.AddDate(0, 0, -10)},
	}
	if got := analytics.UsersCreatedSince(users, base.AddDate(0, 0, -30)); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected user 2 in the last 30 days, got %+v", got)
	}
	quizzes := []domain.Quiz{quiz("a", "", 1), quiz("b", "", 1)}
	quizzes[1].CreatedAt = base.AddDate(0, 0, -8)
	if got := analytics.CountQuizzesSince(quizzes, base.Add(-analytics.Week)); got != 1 {
		t.Fatalf("expected 1 quiz in the last week, got %d", got)
	}
}
