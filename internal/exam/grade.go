package exam

import "github.com/pavelanni/ujian/internal/model"

// Review is the graded view of one question.
type Review struct {
	Question model.Question
	Given    string // empty when unanswered
	Correct  bool
}

// Outcome is the result of grading an attempt.
type Outcome struct {
	Score   float64
	Correct int
	Total   int
	Reviews []Review
	// Saved is false when the result could not be stored.
	Saved bool
}

// Grade scores answers against questions. Every correct answer is worth
// 100/len(questions) points, so a perfect attempt scores 100.
func Grade(questions []model.Question, answers []string) Outcome {
	out := Outcome{Total: len(questions)}
	if len(questions) == 0 {
		return out
	}
	perQuestion := 100 / float64(len(questions))
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		correct := given != "" && given == q.Answer
		if correct {
			out.Correct++
			out.Score += perQuestion
		}
		out.Reviews = append(out.Reviews, Review{Question: q, Given: given, Correct: correct})
	}
	if out.Correct == out.Total {
		// Avoid 99.99999999999999 from summing thirds and the like.
		out.Score = 100
	}
	return out
}
