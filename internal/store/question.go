package store

import (
	"fmt"

	"github.com/pavelanni/ujian/internal/model"
)

const insertQuestionSQL = `INSERT INTO soal_ujian (matkul, pertanyaan, opsi_1, opsi_2, opsi_3, opsi_4, jawaban)
	VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

const selectQuestionSQL = `SELECT id, matkul, pertanyaan, opsi_1, opsi_2, opsi_3, opsi_4, jawaban FROM soal_ujian`

// InsertQuestion stores a single question.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	var id int64
	err := s.db.QueryRowx(s.db.Rebind(insertQuestionSQL),
		q.Course, q.Prompt, q.Option1, q.Option2, q.Option3, q.Option4, q.Answer,
	).Scan(&id)
	return id, err
}

// InsertQuestions stores all questions in one transaction. Either every row
// is inserted or none is.
func (s *Store) InsertQuestions(qs []model.Question) (int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := tx.Rebind(insertQuestionSQL)
	for i, q := range qs {
		var id int64
		err := tx.QueryRowx(query,
			q.Course, q.Prompt, q.Option1, q.Option2, q.Option3, q.Option4, q.Answer,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(qs), nil
}

// ListQuestionsByCourse returns the questions of a course in insertion order.
func (s *Store) ListQuestionsByCourse(course string) ([]model.Question, error) {
	var questions []model.Question
	err := s.db.Select(&questions, s.db.Rebind(selectQuestionSQL+` WHERE matkul = ? ORDER BY id`), course)
	return questions, err
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.Get(&count, `SELECT COUNT(*) FROM soal_ujian`)
	return count, err
}

// CountQuestionsByCourse returns the number of questions per course.
func (s *Store) CountQuestionsByCourse() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT matkul, COUNT(*) FROM soal_ujian GROUP BY matkul`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var course string
		var n int
		if err := rows.Scan(&course, &n); err != nil {
			return nil, err
		}
		counts[course] = n
	}
	return counts, rows.Err()
}
