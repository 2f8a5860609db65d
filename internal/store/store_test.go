package store

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/ujian/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stepClock makes s.now return base, base+1s, base+2s, ...
func stepClock(s *Store, base time.Time) {
	n := 0
	s.now = func() time.Time {
		t := base.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func testQuestion(course, prompt, answer string) model.Question {
	return model.Question{
		Course:  course,
		Prompt:  prompt,
		Option1: "opt a",
		Option2: "opt b",
		Option3: "opt c",
		Option4: "opt d",
		Answer:  answer,
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	exists, err := s.UserExists("alice")
	if err != nil {
		t.Fatalf("UserExists: %v", err)
	}
	if exists {
		t.Fatal("expected alice not to exist yet")
	}

	id, err := s.CreateUser(model.User{Username: "alice", PasswordHash: "hash", Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero user ID")
	}

	exists, _ = s.UserExists("alice")
	if !exists {
		t.Error("expected alice to exist")
	}

	u, err := s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.PasswordHash != "hash" || u.Role != model.UserRoleStudent {
		t.Errorf("unexpected user %+v", u)
	}

	missing, err := s.GetUserByUsername("bob")
	if err != nil {
		t.Fatalf("GetUserByUsername(bob): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown user, got %+v", missing)
	}

	_, err = s.CreateUser(model.User{Username: "alice", PasswordHash: "other", Role: model.UserRoleStudent})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}

	n, err := s.CountUsersByRole(model.UserRoleAdmin)
	if err != nil {
		t.Fatalf("CountUsersByRole: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 admins, got %d", n)
	}
}

func TestQuestions(t *testing.T) {
	s := newTestStore(t)

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions, got %d", count)
	}

	for _, q := range []model.Question{
		testQuestion("AI", "first", "A"),
		testQuestion("Jaringan", "other course", "B"),
		testQuestion("AI", "second", "C"),
	} {
		if _, err := s.InsertQuestion(q); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}

	qs, err := s.ListQuestionsByCourse("AI")
	if err != nil {
		t.Fatalf("ListQuestionsByCourse: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 AI questions, got %d", len(qs))
	}
	if qs[0].Prompt != "first" || qs[1].Prompt != "second" {
		t.Errorf("expected insertion order, got %q, %q", qs[0].Prompt, qs[1].Prompt)
	}
	if qs[1].Answer != "C" || qs[1].Option4 != "opt d" {
		t.Errorf("unexpected question fields %+v", qs[1])
	}

	none, err := s.ListQuestionsByCourse("Matematika")
	if err != nil {
		t.Fatalf("ListQuestionsByCourse: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no questions, got %d", len(none))
	}

	counts, err := s.CountQuestionsByCourse()
	if err != nil {
		t.Fatalf("CountQuestionsByCourse: %v", err)
	}
	if counts["AI"] != 2 || counts["Jaringan"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestInsertQuestionsAllOrNothing(t *testing.T) {
	s := newTestStore(t)

	n, err := s.InsertQuestions([]model.Question{
		testQuestion("AI", "q1", "A"),
		testQuestion("AI", "q2", "D"),
	})
	if err != nil {
		t.Fatalf("InsertQuestions: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 inserted, got %d", n)
	}

	// The third row violates the answer CHECK constraint.
	_, err = s.InsertQuestions([]model.Question{
		testQuestion("AI", "q3", "A"),
		testQuestion("AI", "q4", "B"),
		testQuestion("AI", "q5", "E"),
	})
	if err == nil {
		t.Fatal("expected error for invalid answer label")
	}

	count, _ := s.QuestionCount()
	if count != 2 {
		t.Errorf("expected rollback to leave 2 questions, got %d", count)
	}
}

func TestResultsAttemptGate(t *testing.T) {
	s := newTestStore(t)

	has, err := s.HasAttempt("123", "AI")
	if err != nil {
		t.Fatalf("HasAttempt: %v", err)
	}
	if has {
		t.Fatal("expected no attempt before insert")
	}

	if _, err := s.InsertResult("Budi", "123", "AI", 75); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	has, _ = s.HasAttempt("123", "AI")
	if !has {
		t.Error("expected attempt after insert")
	}
	has, _ = s.HasAttempt("123", "Jaringan")
	if has {
		t.Error("attempt must be scoped to the course")
	}

	_, err = s.InsertResult("Budi", "123", "AI", 100)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for second result, got %v", err)
	}
}

func TestListAndTopResults(t *testing.T) {
	s := newTestStore(t)
	stepClock(s, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	inserts := []struct {
		name, nim string
		score     float64
	}{
		{"early80", "1", 80},
		{"top", "2", 100},
		{"late80", "3", 80},
		{"low", "4", 20},
	}
	for _, in := range inserts {
		if _, err := s.InsertResult(in.name, in.nim, "AI", in.score); err != nil {
			t.Fatalf("InsertResult(%s): %v", in.name, err)
		}
	}

	all, err := s.ListResults()
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 results, got %d", len(all))
	}
	if all[0].Name != "low" || all[3].Name != "early80" {
		t.Errorf("expected newest first, got %s ... %s", all[0].Name, all[3].Name)
	}

	top, err := s.TopResults(3)
	if err != nil {
		t.Fatalf("TopResults: %v", err)
	}
	want := []string{"top", "early80", "late80"}
	if len(top) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(top))
	}
	for i, name := range want {
		if top[i].Name != name {
			t.Errorf("top[%d] = %s, want %s", i, top[i].Name, name)
		}
	}
	if !top[1].Time.Before(top[2].Time) {
		t.Errorf("expected earlier timestamp first, got %v then %v", top[1].Time, top[2].Time)
	}
}

func TestUpdateAndDeleteResult(t *testing.T) {
	s := newTestStore(t)

	id, err := s.InsertResult("Sari", "9", "Matematika", 40)
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	if err := s.UpdateScore(id, 65.5); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	r, err := s.GetResult(id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if r.Score != 65.5 {
		t.Errorf("expected score 65.5, got %v", r.Score)
	}

	if err := s.UpdateScore(9999, 10); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows updating unknown result, got %v", err)
	}

	if err := s.DeleteResult(id); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if _, err := s.GetResult(id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows after delete, got %v", err)
	}
	if err := s.DeleteResult(id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows deleting twice, got %v", err)
	}

	// Deleting frees the (student, course) slot again.
	if _, err := s.InsertResult("Sari", "9", "Matematika", 90); err != nil {
		t.Errorf("InsertResult after delete: %v", err)
	}
}

func TestCourseAverages(t *testing.T) {
	s := newTestStore(t)

	for _, r := range []struct {
		nim, course string
		score       float64
	}{
		{"1", "AI", 100},
		{"2", "AI", 50},
		{"1", "Jaringan", 40},
	} {
		if _, err := s.InsertResult("x", r.nim, r.course, r.score); err != nil {
			t.Fatalf("InsertResult: %v", err)
		}
	}

	tests := []struct {
		name   string
		course string
		want   []model.CourseAverage
	}{
		{"all courses", "", []model.CourseAverage{
			{Course: "AI", Average: 75, Count: 2},
			{Course: "Jaringan", Average: 40, Count: 1},
		}},
		{"one course", "Jaringan", []model.CourseAverage{
			{Course: "Jaringan", Average: 40, Count: 1},
		}},
		{"no results", "Matematika", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CourseAverages(tt.course)
			if err != nil {
				t.Fatalf("CourseAverages: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d rows, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}

	courses, err := s.ListResultCourses()
	if err != nil {
		t.Fatalf("ListResultCourses: %v", err)
	}
	if len(courses) != 2 || courses[0] != "AI" || courses[1] != "Jaringan" {
		t.Errorf("unexpected courses %v", courses)
	}
}

func TestTranslateToSQLite(t *testing.T) {
	got := translateToSQLite(schema)
	for _, pgOnly := range []string{"BIGSERIAL", "TIMESTAMPTZ", "DOUBLE PRECISION"} {
		if strings.Contains(got, pgOnly) {
			t.Errorf("translated schema still contains %q", pgOnly)
		}
	}
}
