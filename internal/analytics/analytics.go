// Package analytics derives dashboard statistics from snapshots of quizzes and users.
// Every function is read-only over its input and returns zero values for empty input.
package analytics

import (
	"time"

	"quizdesk/internal/domain"
	"quizdesk/internal/grading"
)

// UnknownName is shown for student ids with no matching user.
const UnknownName = "Unknown"

// DefaultTopic labels quizzes without a topic.
const DefaultTopic = "General"

// Attempt is a submission flattened together with the parent quiz fields the
// aggregations need.
type Attempt struct {
	QuizID        string
	QuizTitle     string
	Topic         string
	StudentID     string
	Score         int
	Questions     int
	QuizCreatedAt time.Time
	SubmittedAt   time.Time
}

// Percentage is the attempt score as a whole percentage of its questions.
func (a Attempt) Percentage() int {
	return grading.Percentage(a.Score, a.Questions)
}

// Timestamp is when the attempt happened, falling back to the quiz creation time
// for submissions recorded without one.
func (a Attempt) Timestamp() time.Time {
	if a.SubmittedAt.IsZero() {
		return a.QuizCreatedAt
	}
	return a.SubmittedAt
}

// Attempts flattens all submissions, keeping quiz order then submission order.
func Attempts(quizzes []domain.Quiz) []Attempt {
	var out []Attempt
	for _, q := range quizzes {
		topic := q.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		for _, s := range q.Submissions {
			out = append(out, Attempt{
				QuizID:        q.ID,
				QuizTitle:     q.Title,
				Topic:         topic,
				StudentID:     s.StudentID,
				Score:         s.Score,
				Questions:     len(q.Questions),
				QuizCreatedAt: q.CreatedAt,
				SubmittedAt:   s.SubmittedAt,
			})
		}
	}
	return out
}

// CreatedSince keeps attempts whose quiz was created at or after since.
func CreatedSince(attempts []Attempt, since time.Time) []Attempt {
	var out []Attempt
	for _, a := range attempts {
		if !a.QuizCreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out
}

// AverageScore is the share of correct answers across every graded answer:
// sum of scores over sum of question counts. It is not the mean of per-attempt
// percentages, which diverges when quizzes differ in length.
func AverageScore(attempts []Attempt) int {
	score, questions := 0, 0
	for _, a := range attempts {
		score += a.Score
		questions += a.Questions
	}
	return grading.Percentage(score, questions)
}

// ActiveStudents counts distinct students among attempts.
func ActiveStudents(attempts []Attempt) int {
	seen := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		seen[a.StudentID] = struct{}{}
	}
	return len(seen)
}

// Directory resolves user ids to user records.
type Directory map[string]domain.User

// NewDirectory indexes users by id.
func NewDirectory(users []domain.User) Directory {
	d := make(Directory, len(users))
	for _, u := range users {
		d[u.ID] = u
	}
	return d
}

// Name returns the user name, or UnknownName when the id is missing.
func (d Directory) Name(id string) string {
	if u, ok := d[id]; ok && u.Name != "" {
		return u.Name
	}
	return UnknownName
}

// studentTotals accumulates attempts of one student.
type studentTotals struct {
	studentID    string
	attempts     int
	score        int
	questions    int
	lastActivity time.Time
}

func (t studentTotals) average() int {
	return grading.Percentage(t.score, t.questions)
}

// groupByStudent totals attempts per student in first-seen order.
func groupByStudent(attempts []Attempt) []studentTotals {
	index := make(map[string]int)
	var out []studentTotals
	for _, a := range attempts {
		i, ok := index[a.StudentID]
		if !ok {
			i = len(out)
			index[a.StudentID] = i
			out = append(out, studentTotals{studentID: a.StudentID})
		}
		t := &out[i]
		t.attempts++
		t.score += a.Score
		t.questions += a.Questions
		if a.QuizCreatedAt.After(t.lastActivity) {
			t.lastActivity = a.QuizCreatedAt
		}
	}
	return out
}

// UserSlice is one segment of the role distribution chart.
type UserSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// RoleCounts tallies users per role.
func RoleCounts(users []domain.User) map[domain.Role]int {
	counts := make(map[domain.Role]int, 3)
	for _, u := range users {
		counts[u.Role]++
	}
	return counts
}

// UserDistribution reports students, teachers and admins in that order.
func UserDistribution(users []domain.User) []UserSlice {
	counts := RoleCounts(users)
	return []UserSlice{
		{Name: "Students", Value: counts[domain.RoleStudent]},
		{Name: "Teachers", Value: counts[domain.RoleTeacher]},
		{Name: "Admins", Value: counts[domain.RoleAdmin]},
	}
}
