package grading

import (
	"testing"

	"quizdesk/internal/domain"
)

func fiveQuestions() []domain.Question {
	keys := []string{"A", "B", "C", "D", "E"}
	qs := make([]domain.Question, len(keys))
	for i, k := range keys {
		qs[i] = domain.Question{Text: "q" + k, Options: []string{"A", "B", "C", "D", "E"}, CorrectAnswer: k}
	}
	return qs
}

func TestGradeExample(t *testing.T) {
	score := Grade(fiveQuestions(), []string{"a", "B", "", "D", "E"})
	if score != 3 {
		t.Fatalf("expected score 3, got %d", score)
	}
	if pct := Percentage(score, 5); pct != 60 {
		t.Fatalf("expected 60%%, got %d", pct)
	}
	if !Passed(score, 5, DefaultPassThreshold) {
		t.Fatalf("expected 60%% to pass at the default threshold")
	}
	if Passed(2, 5, DefaultPassThreshold) {
		t.Fatalf("expected 40%% to fail")
	}
}

func TestGradeTrimsAnswers(t *testing.T) {
	if got := Grade(fiveQuestions(), []string{"  A ", "B\t", "x", "", " "}); got != 2 {
		t.Fatalf("expected 2 after trimming, got %d", got)
	}
}

func TestPaddedStoredKeyMatches(t *testing.T) {
	q := domain.Question{Text: "t", Options: []string{" A ", "B"}, CorrectAnswer: " A "}
	if !Correct(q, "A") {
		t.Fatal("expected trimmed answer to match a padded key")
	}
}

func TestBlankAnswerNeverCorrect(t *testing.T) {
	qs := []domain.Question{
		{Text: "empty key", Options: []string{""}, CorrectAnswer: ""},
		{Text: "space key", Options: []string{" "}, CorrectAnswer: " "},
	}
	if got := Grade(qs, []string{"", "   "}); got != 0 {
		t.Fatalf("blank answers must never score, got %d", got)
	}
}

func TestGradeRangeAndDeterminism(t *testing.T) {
	qs := fiveQuestions()
	inputs := [][]string{
		{"", "", "", "", ""},
		{"A", "B", "C", "D", "E"},
		{"E", "D", "C", "B", "A"},
		{"a", "b", "c", "d", "e"},
	}
	for _, answers := range inputs {
		first := Grade(qs, answers)
		if first < 0 || first > len(qs) {
			t.Fatalf("score %d out of range for %v", first, answers)
		}
		if second := Grade(qs, answers); second != first {
			t.Fatalf("grade not deterministic: %d then %d", first, second)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{13, 15, 87},
		{5, 5, 100},
	}
	for _, c := range cases {
		if got := Percentage(c.score, c.total); got != c.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", c.score, c.total, got, c.want)
		}
	}
}

func TestHaversine(t *testing.T) {
	if d := Haversine(10, 20, 10, 20); d != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", d)
	}
	// One degree of latitude is roughly 111.2 km.
	d := Haversine(0, 0, 1, 0)
	if d < 111000 || d > 111400 {
		t.Fatalf("expected ~111.2km, got %f", d)
	}
}
