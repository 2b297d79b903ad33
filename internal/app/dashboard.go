package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"quizdesk/internal/analytics"
	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

const (
	recentUserCount   = 4
	defaultLogEntries = 20
	maxLogEntries     = 200
)

// DashboardService recomputes every statistic from a fresh snapshot per call.
type DashboardService struct {
	quizzes       QuizRepository
	users         UserRepository
	passThreshold float64
	now           func() time.Time
}

// NewDashboardService builds the dashboards. passThreshold outside (0, 1]
// falls back to grading.DefaultPassThreshold.
func NewDashboardService(quizzes QuizRepository, users UserRepository, passThreshold float64, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if passThreshold <= 0 || passThreshold > 1 {
		passThreshold = grading.DefaultPassThreshold
	}
	return &DashboardService{quizzes: quizzes, users: users, passThreshold: passThreshold, now: now}
}

type snapshot struct {
	quizzes []domain.Quiz
	users   []domain.User
}

// load fetches quizzes and users concurrently.
func (d *DashboardService) load(ctx context.Context, quizFilter domain.QuizFilter, userFilter domain.UserFilter) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quizzes, err := d.quizzes.FindQuizzes(ctx, quizFilter)
		snap.quizzes = quizzes
		return upstream("find quizzes", err)
	})
	g.Go(func() error {
		users, err := d.users.FindUsers(ctx, userFilter)
		snap.users = users
		return upstream("find users", err)
	})
	return snap, g.Wait()
}

// teacherSnapshot loads the caller's quizzes and then only the users who
// submitted to them.
func (d *DashboardService) teacherSnapshot(ctx context.Context, caller Caller) (snapshot, error) {
	if err := caller.require(domain.RoleTeacher); err != nil {
		return snapshot{}, err
	}
	quizzes, err := d.quizzes.FindQuizzes(ctx, domain.QuizFilter{CreatedBy: caller.ID})
	if err != nil {
		return snapshot{}, upstream("find quizzes", err)
	}
	ids := studentIDs(quizzes)
	if len(ids) == 0 {
		return snapshot{quizzes: quizzes}, nil
	}
	users, err := d.users.FindUsers(ctx, domain.UserFilter{IDs: ids})
	if err != nil {
		return snapshot{}, upstream("find users", err)
	}
	return snapshot{quizzes: quizzes, users: users}, nil
}

func studentIDs(quizzes []domain.Quiz) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, q := range quizzes {
		for _, s := range q.Submissions {
			if _, ok := seen[s.StudentID]; !ok {
				seen[s.StudentID] = struct{}{}
				ids = append(ids, s.StudentID)
			}
		}
	}
	return ids
}

func topics(quizzes []domain.Quiz) []string {
	out := make([]string, len(quizzes))
	for i, q := range quizzes {
		out[i] = q.Topic
	}
	return out
}

func percent(v int) string {
	return fmt.Sprintf("%d%%", v)
}

// AdminStats is the admin dashboard payload.
type AdminStats struct {
	TotalUsers           int                     `json:"totalUsers"`
	TotalStudents        int                     `json:"totalStudents"`
	TotalTeachers        int                     `json:"totalTeachers"`
	TotalAdmins          int                     `json:"totalAdmins"`
	TotalQuizzes         int                     `json:"totalQuizzes"`
	PublishedQuizzes     int                     `json:"publishedQuizzes"`
	TotalSubmissions     int                     `json:"totalSubmissions"`
	ActiveStudents       int                     `json:"activeStudents"`
	RecentActiveStudents int                     `json:"recentActiveStudents"`
	AverageScore         string                  `json:"averageScore"`
	RecentAverageScore   string                  `json:"recentAverageScore"`
	// UserGrowthThisMonth keeps its wire name but counts registrations of the
	// trailing week, like RecentUsers.
	UserGrowthThisMonth  int                     `json:"userGrowthThisMonth"`
	QuizGrowthThisWeek   int                     `json:"quizGrowthThisWeek"`
	TopPerformers        []analytics.Performer   `json:"topPerformers"`
	PerformanceData      []analytics.TopicStat   `json:"performanceData"`
	ActivityData         []analytics.DayActivity `json:"activityData"`
	UserDistribution     []analytics.UserSlice   `json:"userDistribution"`
	MonthlyGrowth        []analytics.MonthGrowth `json:"monthlyGrowth"`
	RecentActivities     []analytics.Activity    `json:"recentActivities"`
	RecentUsers          []domain.User           `json:"recentUsers"`
}

// AdminStats aggregates the whole platform.
func (d *DashboardService) AdminStats(ctx context.Context, caller Caller) (AdminStats, error) {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return AdminStats{}, err
	}
	snap, err := d.load(ctx, domain.QuizFilter{}, domain.UserFilter{})
	if err != nil {
		return AdminStats{}, err
	}
	now := d.now()
	weekAgo := now.Add(-analytics.Week)
	attempts := analytics.Attempts(snap.quizzes)
	recent := analytics.CreatedSince(attempts, weekAgo)
	roles := analytics.RoleCounts(snap.users)
	newUsers := analytics.UsersCreatedSince(snap.users, weekAgo)

	published := 0
	for _, q := range snap.quizzes {
		if q.IsPublished {
			published++
		}
	}

	return AdminStats{
		TotalUsers:           len(snap.users),
		TotalStudents:        roles[domain.RoleStudent],
		TotalTeachers:        roles[domain.RoleTeacher],
		TotalAdmins:          roles[domain.RoleAdmin],
		TotalQuizzes:         len(snap.quizzes),
		PublishedQuizzes:     published,
		TotalSubmissions:     len(attempts),
		ActiveStudents:       analytics.ActiveStudents(attempts),
		RecentActiveStudents: analytics.ActiveStudents(recent),
		AverageScore:         percent(analytics.AverageScore(attempts)),
		RecentAverageScore:   percent(analytics.AverageScore(recent)),
		UserGrowthThisMonth:  len(newUsers),
		QuizGrowthThisWeek:   analytics.CountQuizzesSince(snap.quizzes, weekAgo),
		TopPerformers:        analytics.TopPerformers(attempts, analytics.NewDirectory(snap.users), analytics.TopPerformerCount),
		PerformanceData:      analytics.TopicPerformance(topics(snap.quizzes), attempts),
		ActivityData:         analytics.WeeklyActivity(snap.quizzes, now),
		UserDistribution:     analytics.UserDistribution(snap.users),
		MonthlyGrowth:        analytics.MonthlyGrowth(snap.users, now),
		RecentActivities:     analytics.RecentActivity(snap.users, snap.quizzes, now),
		RecentUsers:          analytics.RecentUsers(newUsers, recentUserCount),
	}, nil
}

// TeacherStats is the teacher dashboard payload.
type TeacherStats struct {
	TotalQuizzes      int                     `json:"totalQuizzes"`
	PublishedQuizzes  int                     `json:"publishedQuizzes"`
	PendingResults    int                     `json:"pendingResults"`
	TotalSubmissions  int                     `json:"totalSubmissions"`
	RecentSubmissions int                     `json:"recentSubmissions"`
	TotalStudents     int                     `json:"totalStudents"`
	AverageScore      string                  `json:"averageScore"`
	TopPerformers     []analytics.Performer   `json:"topPerformers"`
	PerformanceData   []analytics.TopicStat   `json:"performanceData"`
	ActivityData      []analytics.DayActivity `json:"activityData"`
}

// TeacherStats aggregates the caller's quizzes.
func (d *DashboardService) TeacherStats(ctx context.Context, caller Caller) (TeacherStats, error) {
	snap, err := d.teacherSnapshot(ctx, caller)
	if err != nil {
		return TeacherStats{}, err
	}
	now := d.now()
	attempts := analytics.Attempts(snap.quizzes)

	stats := TeacherStats{
		TotalQuizzes:     len(snap.quizzes),
		TotalSubmissions: len(attempts),
		TotalStudents:    analytics.ActiveStudents(attempts),
		AverageScore:     percent(analytics.AverageScore(attempts)),
		TopPerformers:    analytics.TopPerformers(attempts, analytics.NewDirectory(snap.users), analytics.TopPerformerCount),
		PerformanceData:  analytics.TopicPerformance(topics(snap.quizzes), attempts),
		ActivityData:     analytics.WeeklyActivity(snap.quizzes, now),
	}
	for _, q := range snap.quizzes {
		if q.IsPublished {
			stats.PublishedQuizzes++
		}
		if len(q.Submissions) > 0 && !q.ResultsPublished {
			stats.PendingResults++
		}
	}
	weekAgo := now.Add(-analytics.Week)
	for _, a := range attempts {
		if !a.Timestamp().Before(weekAgo) {
			stats.RecentSubmissions++
		}
	}
	return stats, nil
}

// Roster lists the students who submitted to the caller's quizzes.
func (d *DashboardService) Roster(ctx context.Context, caller Caller) ([]analytics.RosterEntry, error) {
	snap, err := d.teacherSnapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	return analytics.Roster(analytics.Attempts(snap.quizzes), analytics.NewDirectory(snap.users), d.now()), nil
}

// StudentPerformance reports one student across the caller's quizzes.
func (d *DashboardService) StudentPerformance(ctx context.Context, caller Caller, studentID string) (analytics.StudentPerformance, error) {
	snap, err := d.teacherSnapshot(ctx, caller)
	if err != nil {
		return analytics.StudentPerformance{}, err
	}
	attempts := analytics.Attempts(snap.quizzes)
	report := analytics.PerformanceOf(studentID, attempts, analytics.NewDirectory(snap.users))
	if report.QuizzesTaken == 0 {
		return analytics.StudentPerformance{}, domain.ErrSubmissionNotFound
	}
	return report, nil
}

// SubjectPerformance reports per-topic scores over the caller's quizzes.
func (d *DashboardService) SubjectPerformance(ctx context.Context, caller Caller) ([]analytics.TopicStat, error) {
	snap, err := d.teacherSnapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	return analytics.TopicPerformance(topics(snap.quizzes), analytics.Attempts(snap.quizzes)), nil
}

// ActivityLog lists recent submissions to the caller's quizzes.
func (d *DashboardService) ActivityLog(ctx context.Context, caller Caller, limit int) ([]analytics.LogEntry, error) {
	snap, err := d.teacherSnapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultLogEntries
	case limit > maxLogEntries:
		limit = maxLogEntries
	}
	return analytics.ActivityLog(analytics.Attempts(snap.quizzes), analytics.NewDirectory(snap.users), limit, d.passThreshold), nil
}
