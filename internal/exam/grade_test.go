package exam

import (
	"math"
	"testing"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		key     []string
		answers []string
		want    float64
		correct int
	}{
		{"perfect", []string{"A", "B", "C", "D"}, []string{"A", "B", "C", "D"}, 100, 4},
		{"all wrong", []string{"A", "B", "C", "D"}, []string{"B", "C", "D", "A"}, 0, 0},
		{"three of four", []string{"A", "B", "C", "D"}, []string{"A", "B", "C", "A"}, 75, 3},
		{"unanswered counts as wrong", []string{"A", "B"}, []string{"A", ""}, 50, 1},
		{"perfect thirds", []string{"A", "A", "A"}, []string{"A", "A", "A"}, 100, 3},
		{"one of three", []string{"A", "A", "A"}, []string{"A", "B", "C"}, 100.0 / 3, 1},
		{"short answer slice", []string{"A", "B"}, []string{"A"}, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Grade(sampleQuestions(tt.key...), tt.answers)
			if math.Abs(out.Score-tt.want) > 1e-9 {
				t.Errorf("score = %v, want %v", out.Score, tt.want)
			}
			if out.Correct != tt.correct {
				t.Errorf("correct = %d, want %d", out.Correct, tt.correct)
			}
			if out.Total != len(tt.key) || len(out.Reviews) != len(tt.key) {
				t.Errorf("total = %d, reviews = %d, want %d", out.Total, len(out.Reviews), len(tt.key))
			}
		})
	}
}

func TestGradeEmpty(t *testing.T) {
	out := Grade(nil, nil)
	if out.Score != 0 || out.Total != 0 || out.Reviews != nil {
		t.Errorf("unexpected outcome for no questions: %+v", out)
	}
}

func TestGradeReviews(t *testing.T) {
	out := Grade(sampleQuestions("C", "D"), []string{"C", "A"})
	if !out.Reviews[0].Correct || out.Reviews[0].Given != "C" {
		t.Errorf("review 0 = %+v", out.Reviews[0])
	}
	if out.Reviews[1].Correct || out.Reviews[1].Given != "A" || out.Reviews[1].Question.Answer != "D" {
		t.Errorf("review 1 = %+v", out.Reviews[1])
	}
}
