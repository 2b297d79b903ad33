package domain

import "time"

// Role is the access level of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is a multiple choice question with one correct option.
type Question struct {
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Geofence restricts where a quiz may be taken. Radius is in meters.
type Geofence struct {
	Enabled   bool    `json:"enabled"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// Location is where a student submitted from.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Submission is one student's graded attempt, embedded in its quiz.
type Submission struct {
	StudentID       string    `json:"studentId"`
	Answers         []string  `json:"answers"`
	Score           int       `json:"score"`
	ResultPublished bool      `json:"resultPublished"`
	Feedback        string    `json:"feedback,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
	Location        *Location `json:"location,omitempty"`
}

// Quiz is the document that owns its questions and submissions.
type Quiz struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Topic            string       `json:"topic"`
	Questions        []Question   `json:"questions"`
	CreatedBy        string       `json:"createdBy"`
	Code             string       `json:"quizCode"`
	IsPublished      bool         `json:"isPublished"`
	ResultsPublished bool         `json:"resultsPublished"`
	TimeLimit        int          `json:"timeLimit"`
	Geofence         *Geofence    `json:"geofence,omitempty"`
	Submissions      []Submission `json:"submissions"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// SubmissionBy returns the submission of studentID, if any.
func (q *Quiz) SubmissionBy(studentID string) (*Submission, bool) {
	for i := range q.Submissions {
		if q.Submissions[i].StudentID == studentID {
			return &q.Submissions[i], true
		}
	}
	return nil, false
}

// QuizFilter narrows FindQuizzes. Zero values match everything.
type QuizFilter struct {
	CreatedBy     string
	PublishedOnly bool
	// StudentID keeps quizzes holding a submission from this student.
	StudentID string
}

// UserFilter narrows FindUsers. Zero values match everything.
type UserFilter struct {
	Role Role
	IDs  []string
}
