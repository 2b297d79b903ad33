package analytics

import (
	"sort"
	"strings"
	"time"

	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

// InactiveAfter is how long without a new quiz before a student is inactive.
const InactiveAfter = 14 * 24 * time.Hour

// Student status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// RosterEntry describes one student who submitted to a teacher's quizzes.
type RosterEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	QuizzesTaken int       `json:"quizzesTaken"`
	AverageScore int       `json:"averageScore"`
	LastActivity time.Time `json:"lastActivity"`
	Status       string    `json:"status"`
}

// Roster lists each distinct student found in attempts with totals over those
// attempts, best average first. Last activity is the newest creation time among
// the quizzes taken.
func Roster(attempts []Attempt, dir Directory, now time.Time) []RosterEntry {
	totals := groupByStudent(attempts)
	out := make([]RosterEntry, 0, len(totals))
	for _, t := range totals {
		status := StatusActive
		if now.Sub(t.lastActivity) > InactiveAfter {
			status = StatusInactive
		}
		out = append(out, RosterEntry{
			ID:           t.studentID,
			Name:         dir.Name(t.studentID),
			Email:        dir[t.studentID].Email,
			QuizzesTaken: t.attempts,
			AverageScore: t.average(),
			LastActivity: t.lastActivity,
			Status:       status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// StudentStat is the admin view of a registered student.
type StudentStat struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	QuizzesTaken int        `json:"quizzesTaken"`
	AverageScore int        `json:"averageScore"`
	LastActivity *time.Time `json:"lastActivity"`
	JoinedAt     time.Time  `json:"joinedAt"`
}

// StudentStats reports every student user, including those without attempts,
// ordered by average score descending then name.
func StudentStats(users []domain.User, attempts []Attempt) []StudentStat {
	byStudent := make(map[string]studentTotals)
	for _, t := range groupByStudent(attempts) {
		byStudent[t.studentID] = t
	}
	var out []StudentStat
	for _, u := range users {
		if u.Role != domain.RoleStudent {
			continue
		}
		stat := StudentStat{ID: u.ID, Name: u.Name, Email: u.Email, JoinedAt: u.CreatedAt}
		if t, ok := byStudent[u.ID]; ok {
			last := t.lastActivity
			stat.QuizzesTaken = t.attempts
			stat.AverageScore = t.average()
			stat.LastActivity = &last
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// TeacherStat is the admin view of a registered teacher.
type TeacherStat struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	QuizzesCreated int        `json:"quizzesCreated"`
	Published      int        `json:"publishedQuizzes"`
	LastActivity   *time.Time `json:"lastActivity"`
	JoinedAt       time.Time  `json:"joinedAt"`
}

// TeacherStats reports every teacher with the quizzes they authored, ordered by
// quizzes created descending then name.
func TeacherStats(users []domain.User, quizzes []domain.Quiz) []TeacherStat {
	type totals struct {
		created, published int
		last               time.Time
	}
	byTeacher := make(map[string]*totals)
	for _, q := range quizzes {
		t, ok := byTeacher[q.CreatedBy]
		if !ok {
			t = &totals{}
			byTeacher[q.CreatedBy] = t
		}
		t.created++
		if q.IsPublished {
			t.published++
		}
		if q.CreatedAt.After(t.last) {
			t.last = q.CreatedAt
		}
	}
	var out []TeacherStat
	for _, u := range users {
		if u.Role != domain.RoleTeacher {
			continue
		}
		stat := TeacherStat{ID: u.ID, Name: u.Name, Email: u.Email, JoinedAt: u.CreatedAt}
		if t, ok := byTeacher[u.ID]; ok {
			last := t.last
			stat.QuizzesCreated = t.created
			stat.Published = t.published
			stat.LastActivity = &last
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QuizzesCreated != out[j].QuizzesCreated {
			return out[i].QuizzesCreated > out[j].QuizzesCreated
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// QuizScore is one quiz result inside a student performance report.
type QuizScore struct {
	QuizID      string    `json:"quizId"`
	Title       string    `json:"title"`
	Topic       string    `json:"topic"`
	Score       int       `json:"score"`
	Total       int       `json:"totalQuestions"`
	Percentage  int       `json:"percentage"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// StudentPerformance is a per-quiz report for one student.
type StudentPerformance struct {
	StudentID    string      `json:"studentId"`
	Name         string      `json:"name"`
	QuizzesTaken int         `json:"quizzesTaken"`
	AverageScore int         `json:"averageScore"`
	Results      []QuizScore `json:"results"`
}

// PerformanceOf builds the report of studentID over the given attempts,
// newest attempt first.
func PerformanceOf(studentID string, attempts []Attempt, dir Directory) StudentPerformance {
	var own []Attempt
	for _, a := range attempts {
		if a.StudentID == studentID {
			own = append(own, a)
		}
	}
	results := make([]QuizScore, 0, len(own))
	for _, a := range own {
		results = append(results, QuizScore{
			QuizID:      a.QuizID,
			Title:       a.QuizTitle,
			Topic:       a.Topic,
			Score:       a.Score,
			Total:       a.Questions,
			Percentage:  a.Percentage(),
			SubmittedAt: a.Timestamp(),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SubmittedAt.After(results[j].SubmittedAt)
	})
	return StudentPerformance{
		StudentID:    studentID,
		Name:         dir.Name(studentID),
		QuizzesTaken: len(own),
		AverageScore: AverageScore(own),
		Results:      results,
	}
}

// LogEntry is one submission in the activity log.
type LogEntry struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	Score       int       `json:"score"`
	Total       int       `json:"totalQuestions"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ActivityLog lists attempts newest first, at most limit entries when limit > 0.
// Passed uses the same threshold students see on their results.
func ActivityLog(attempts []Attempt, dir Directory, limit int, passThreshold float64) []LogEntry {
	out := make([]LogEntry, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, LogEntry{
			StudentID:   a.StudentID,
			StudentName: dir.Name(a.StudentID),
			QuizID:      a.QuizID,
			QuizTitle:   a.QuizTitle,
			Score:       a.Score,
			Total:       a.Questions,
			Passed:      grading.Passed(a.Score, a.Questions, passThreshold),
			SubmittedAt: a.Timestamp(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
