package analytics

import (
	"fmt"
	"sort"
	"time"

	"quizdesk/internal/domain"
)

const (
	// Week is the trailing window used for "recent" figures.
	Week = 7 * 24 * time.Hour

	growthMonths      = 6
	recentPerKind     = 3
	recentActivityCap = 4
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayActivity counts quizzes created and submissions made on one weekday.
type DayActivity struct {
	Name        string `json:"name"`
	Quizzes     int    `json:"quizzes"`
	Submissions int    `json:"submissions"`
}

// WeeklyActivity buckets the trailing seven days by weekday, Sunday first.
// Submissions without a timestamp fall back to the creation time of their quiz.
func WeeklyActivity(quizzes []domain.Quiz, now time.Time) []DayActivity {
	days := make([]DayActivity, len(weekdayNames))
	for i, name := range weekdayNames {
		days[i].Name = name
	}
	since := now.Add(-Week)
	inWindow := func(t time.Time) bool {
		return !t.Before(since) && !t.After(now)
	}
	for _, q := range quizzes {
		if inWindow(q.CreatedAt) {
			days[q.CreatedAt.In(now.Location()).Weekday()].Quizzes++
		}
	}
	for _, a := range Attempts(quizzes) {
		ts := a.Timestamp()
		if inWindow(ts) {
			days[ts.In(now.Location()).Weekday()].Submissions++
		}
	}
	return days
}

// MonthGrowth is the cumulative number of users per role at the end of a month.
type MonthGrowth struct {
	Name     string `json:"name"`
	Teachers int    `json:"teachers"`
	Students int    `json:"students"`
}

// MonthlyGrowth reports the six months up to and including the month of now,
// oldest first. A user counts toward a month when created before the first
// instant of the following month.
func MonthlyGrowth(users []domain.User, now time.Time) []MonthGrowth {
	out := make([]MonthGrowth, 0, growthMonths)
	year, month, _ := now.Date()
	for i := growthMonths - 1; i >= 0; i-- {
		start := time.Date(year, month-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0)
		g := MonthGrowth{Name: start.Format("Jan")}
		for _, u := range users {
			if !u.CreatedAt.Before(end) {
				continue
			}
			switch u.Role {
			case domain.RoleTeacher:
				g.Teachers++
			case domain.RoleStudent:
				g.Students++
			}
		}
		out = append(out, g)
	}
	return out
}

// UsersCreatedSince keeps users created at or after since, in input order.
func UsersCreatedSince(users []domain.User, since time.Time) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if !u.CreatedAt.Before(since) {
			out = append(out, u)
		}
	}
	return out
}

// CountQuizzesSince counts quizzes created at or after since.
func CountQuizzesSince(quizzes []domain.Quiz, since time.Time) int {
	n := 0
	for _, q := range quizzes {
		if !q.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

// Activity kinds.
const (
	ActivityUser = "user"
	ActivityQuiz = "quiz"
)

// Activity is one entry of the admin recent activity feed.
type Activity struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Time    string    `json:"time"`
	At      time.Time `json:"timestamp"`
}

// RecentActivity merges the newest registrations and quiz creations of the
// trailing week, newest first, capped at four entries.
func RecentActivity(users []domain.User, quizzes []domain.Quiz, now time.Time) []Activity {
	since := now.Add(-Week)
	dir := NewDirectory(users)

	recentUsers := make([]domain.User, 0, len(users))
	for _, u := range users {
		if !u.CreatedAt.Before(since) {
			recentUsers = append(recentUsers, u)
		}
	}
	sort.SliceStable(recentUsers, func(i, j int) bool {
		return recentUsers[i].CreatedAt.After(recentUsers[j].CreatedAt)
	})
	if len(recentUsers) > recentPerKind {
		recentUsers = recentUsers[:recentPerKind]
	}

	recentQuizzes := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if !q.CreatedAt.Before(since) {
			recentQuizzes = append(recentQuizzes, q)
		}
	}
	sort.SliceStable(recentQuizzes, func(i, j int) bool {
		return recentQuizzes[i].CreatedAt.After(recentQuizzes[j].CreatedAt)
	})
	if len(recentQuizzes) > recentPerKind {
		recentQuizzes = recentQuizzes[:recentPerKind]
	}

	out := make([]Activity, 0, len(recentUsers)+len(recentQuizzes))
	for _, u := range recentUsers {
		out = append(out, Activity{
			ID:      u.ID,
			Type:    ActivityUser,
			Message: fmt.Sprintf("New %s %s registered", u.Role, u.Name),
			Time:    TimeAgo(u.CreatedAt, now),
			At:      u.CreatedAt,
		})
	}
	for _, q := range recentQuizzes {
		creator := "Someone"
		if u, ok := dir[q.CreatedBy]; ok && u.Name != "" {
			creator = u.Name
		}
		out = append(out, Activity{
			ID:      q.ID,
			Type:    ActivityQuiz,
			Message: fmt.Sprintf("%s created %q", creator, q.Title),
			Time:    TimeAgo(q.CreatedAt, now),
			At:      q.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	if len(out) > recentActivityCap {
		out = out[:recentActivityCap]
	}
	return out
}

// TimeAgo renders the elapsed time between t and now in days or hours.
func TimeAgo(t, now time.Time) string {
	elapsed := now.Sub(t)
	if days := int(elapsed / (24 * time.Hour)); days > 0 {
		return plural(days, "day") + " ago"
	}
	if hours := int(elapsed / time.Hour); hours > 0 {
		return plural(hours, "hour") + " ago"
	}
	return "Just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// RecentUsers returns the n newest users, newest first.
func RecentUsers(users []domain.User, n int) []domain.User {
	out := append([]domain.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
