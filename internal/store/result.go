package store

import (
	"database/sql"

	"github.com/pavelanni/ujian/internal/model"
)

const selectResultSQL = `SELECT id, nama, nim, matkul, skor, waktu FROM hasil_ujian`

// InsertResult records a completed attempt with the current server time.
// It returns ErrConflict if the student already has a result for the course.
func (s *Store) InsertResult(name, studentID, course string, score float64) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		s.db.Rebind(`INSERT INTO hasil_ujian (nama, nim, matkul, skor, waktu)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		name, studentID, course, score, s.now(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// HasAttempt reports whether a result exists for the student and course.
func (s *Store) HasAttempt(studentID, course string) (bool, error) {
	var n int
	err := s.db.Get(&n, s.db.Rebind(`SELECT COUNT(*) FROM hasil_ujian WHERE nim = ? AND matkul = ?`),
		studentID, course)
	return n > 0, err
}

// GetResult returns a result by ID.
func (s *Store) GetResult(id int64) (model.Result, error) {
	var r model.Result
	err := s.db.Get(&r, s.db.Rebind(selectResultSQL+` WHERE id = ?`), id)
	return r, err
}

// ListResults returns all results, newest first.
func (s *Store) ListResults() ([]model.Result, error) {
	var results []model.Result
	err := s.db.Select(&results, selectResultSQL+` ORDER BY waktu DESC, id DESC`)
	return results, err
}

// TopResults returns the n best results. Equal scores rank the earlier attempt first.
func (s *Store) TopResults(n int) ([]model.Result, error) {
	var results []model.Result
	err := s.db.Select(&results, s.db.Rebind(selectResultSQL+` ORDER BY skor DESC, waktu ASC, id ASC LIMIT ?`), n)
	return results, err
}

// UpdateScore overwrites the score of a result. It returns sql.ErrNoRows if
// the result does not exist.
func (s *Store) UpdateScore(id int64, score float64) error {
	res, err := s.db.Exec(s.db.Rebind(`UPDATE hasil_ujian SET skor = ? WHERE id = ?`), score, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// DeleteResult removes a result. It returns sql.ErrNoRows if the result does not exist.
func (s *Store) DeleteResult(id int64) error {
	res, err := s.db.Exec(s.db.Rebind(`DELETE FROM hasil_ujian WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// CourseAverages returns the mean score per course, best course first.
// An empty course means all courses.
func (s *Store) CourseAverages(course string) ([]model.CourseAverage, error) {
	query := `SELECT matkul, AVG(skor) AS rata_rata, COUNT(*) AS jumlah FROM hasil_ujian`
	var args []any
	if course != "" {
		query += ` WHERE matkul = ?`
		args = append(args, course)
	}
	query += ` GROUP BY matkul ORDER BY rata_rata DESC, matkul`
	var avgs []model.CourseAverage
	err := s.db.Select(&avgs, s.db.Rebind(query), args...)
	return avgs, err
}

// ListResultCourses returns the distinct courses that have results, alphabetically.
func (s *Store) ListResultCourses() ([]string, error) {
	var courses []string
	err := s.db.Select(&courses, `SELECT DISTINCT matkul FROM hasil_ujian ORDER BY matkul`)
	return courses, err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
