package http

import (
	"time"

	"github.com/jinzhu/copier"

	"quizdesk/internal/domain"
)

// StudentQuestion is a question without its answer key.
type StudentQuestion struct {
	Text    string   `json:"questionText"`
	Options []string `json:"options"`
}

// StudentQuiz is what students see of a quiz: no answer key, no submissions.
type StudentQuiz struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Topic     string            `json:"topic"`
	Code      string            `json:"quizCode"`
	TimeLimit int               `json:"timeLimit"`
	Geofence  *domain.Geofence  `json:"geofence,omitempty"`
	Questions []StudentQuestion `json:"questions"`
	CreatedAt time.Time         `json:"createdAt"`
}

func studentView(quiz domain.Quiz) (StudentQuiz, error) {
	var view StudentQuiz
	if err := copier.Copy(&view, &quiz); err != nil {
		return StudentQuiz{}, err
	}
	if view.Questions == nil {
		view.Questions = []StudentQuestion{}
	}
	return view, nil
}

func studentViews(quizzes []domain.Quiz) ([]StudentQuiz, error) {
	views := make([]StudentQuiz, 0, len(quizzes))
	for _, q := range quizzes {
		v, err := studentView(q)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}
