package analytics

import (
	"math"
	"sort"

	"quizdesk/internal/grading"
)

// TopPerformerCount is the length of the top performers list.
const TopPerformerCount = 3

// Performer is a student ranked by aggregate percentage.
type Performer struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	AvgScore  int    `json:"avgScore"`
}

// TopPerformers ranks students by their weighted average, highest first.
// Ties keep the order in which students first appear in attempts.
func TopPerformers(attempts []Attempt, dir Directory, n int) []Performer {
	totals := groupByStudent(attempts)
	out := make([]Performer, 0, len(totals))
	for _, t := range totals {
		out = append(out, Performer{StudentID: t.studentID, AvgScore: t.average()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgScore > out[j].AvgScore
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Name = dir.Name(out[i].StudentID)
	}
	return out
}

// TopicStat summarizes per-submission percentages within one topic.
type TopicStat struct {
	Subject string `json:"subject"`
	Avg     int    `json:"avg"`
	Highest int    `json:"highest"`
	Lowest  int    `json:"lowest"`
	// Attempts is the number of submissions behind the figures.
	Attempts int `json:"attempts"`
}

// TopicPerformance groups attempt percentages by topic. Topics listed in
// topics appear even without attempts so empty topics report zeros.
// Result order is first appearance in topics, then in attempts.
func TopicPerformance(topics []string, attempts []Attempt) []TopicStat {
	index := make(map[string]int)
	var names []string
	var scores [][]int
	add := func(topic string) int {
		if topic == "" {
			topic = DefaultTopic
		}
		i, ok := index[topic]
		if !ok {
			i = len(names)
			index[topic] = i
			names = append(names, topic)
			scores = append(scores, nil)
		}
		return i
	}
	for _, t := range topics {
		add(t)
	}
	for _, a := range attempts {
		i := add(a.Topic)
		scores[i] = append(scores[i], a.Percentage())
	}

	out := make([]TopicStat, len(names))
	for i, name := range names {
		out[i] = summarize(name, scores[i])
	}
	return out
}

func summarize(subject string, scores []int) TopicStat {
	stat := TopicStat{Subject: subject, Attempts: len(scores)}
	if len(scores) == 0 {
		return stat
	}
	sum, hi, lo := 0, math.MinInt, math.MaxInt
	for _, s := range scores {
		sum += s
		if s > hi {
			hi = s
		}
		if s < lo {
			lo = s
		}
	}
	stat.Avg = grading.Round(float64(sum) / float64(len(scores)))
	stat.Highest = hi
	stat.Lowest = lo
	return stat
}
