package exam

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/store"
)

type fakeQuestions map[string][]model.Question

func (f fakeQuestions) ListQuestionsByCourse(course string) ([]model.Question, error) {
	return f[course], nil
}

type fakeResults struct {
	rows      map[[2]string]float64
	inserts   int
	insertErr error
}

func newFakeResults() *fakeResults {
	return &fakeResults{rows: make(map[[2]string]float64)}
}

func (f *fakeResults) HasAttempt(studentID, course string) (bool, error) {
	_, ok := f.rows[[2]string{studentID, course}]
	return ok, nil
}

func (f *fakeResults) InsertResult(_, studentID, course string, score float64) (int64, error) {
	f.inserts++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	key := [2]string{studentID, course}
	if _, ok := f.rows[key]; ok {
		return 0, store.ErrConflict
	}
	f.rows[key] = score
	return int64(len(f.rows)), nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(results *fakeResults) (*Service, *testClock) {
	clock := &testClock{now: t0}
	svc := NewService(fakeQuestions{"AI": sampleQuestions("A", "B", "C", "D")}, results, 0)
	svc.now = clock.Now
	return svc, clock
}

func startedAttempt(t *testing.T, svc *Service) *Attempt {
	t.Helper()
	a := &Attempt{}
	if err := svc.Identify(a, validIdentity()); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if err := svc.Start(a); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.State != StateInProgress {
		t.Fatalf("state = %s, want in_progress", a.State)
	}
	return a
}

func TestServiceFullAttempt(t *testing.T) {
	results := newFakeResults()
	svc, clock := newTestService(results)

	if svc.Limit() != DefaultDuration {
		t.Errorf("Limit = %v, want %v", svc.Limit(), DefaultDuration)
	}

	a := startedAttempt(t, svc)
	for i, label := range []string{"A", "B", "C", "A"} {
		clock.Advance(10 * time.Second)
		if err := svc.Select(a, i, label); err != nil {
			t.Fatalf("Select: %v", err)
		}
	}
	if got := svc.Remaining(a); got != DefaultDuration-40*time.Second {
		t.Errorf("Remaining = %v", got)
	}

	if err := svc.Submit(a); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.State != StateGraded || a.Outcome == nil {
		t.Fatalf("state = %s, outcome = %v", a.State, a.Outcome)
	}
	if a.Outcome.Score != 75 || !a.Outcome.Saved {
		t.Errorf("outcome = %+v, want saved score 75", a.Outcome)
	}
	if results.rows[[2]string{"2201", "AI"}] != 75 {
		t.Errorf("stored rows = %v", results.rows)
	}
}

func TestServiceRefusesSecondAttempt(t *testing.T) {
	results := newFakeResults()
	results.rows[[2]string{"2201", "AI"}] = 50
	svc, _ := newTestService(results)

	a := &Attempt{}
	if err := svc.Identify(a, validIdentity()); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if err := svc.Start(a); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.State != StateAlreadyDone {
		t.Errorf("state = %s, want already_done", a.State)
	}
	if results.inserts != 0 {
		t.Errorf("expected no writes, got %d", results.inserts)
	}

	b := &Attempt{}
	_ = svc.Identify(b, validIdentity())
	if err := svc.Gate(b); err != nil {
		t.Fatalf("Gate: %v", err)
	}
	if b.State != StateAlreadyDone {
		t.Errorf("gate state = %s, want already_done", b.State)
	}
}

func TestServiceRefuse(t *testing.T) {
	results := newFakeResults()
	svc, _ := newTestService(results)

	a := &Attempt{}
	if err := svc.Identify(a, validIdentity()); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if err := svc.Refuse(a); err != nil {
		t.Fatalf("Refuse: %v", err)
	}
	if a.State != StateAlreadyDone {
		t.Fatalf("state = %s, want already_done", a.State)
	}
	if err := svc.Start(a); !errors.Is(err, ErrFinished) {
		t.Errorf("Start after Refuse = %v, want ErrFinished", err)
	}

	// Only identified attempts are refused.
	b := startedAttempt(t, svc)
	if err := svc.Refuse(b); err != nil {
		t.Fatalf("Refuse in progress: %v", err)
	}
	if b.State != StateInProgress {
		t.Errorf("state = %s, want in_progress", b.State)
	}
}

func TestServiceNoQuestions(t *testing.T) {
	svc, _ := newTestService(newFakeResults())

	a := &Attempt{}
	id := validIdentity()
	id.Course = "Jaringan"
	_ = svc.Identify(a, id)
	if err := svc.Start(a); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Start error = %v, want ErrNoQuestions", err)
	}
	if a.State != StateIdentified {
		t.Errorf("state = %s, want identified", a.State)
	}
}

func TestServiceSubmitRace(t *testing.T) {
	results := newFakeResults()
	svc, _ := newTestService(results)

	a := startedAttempt(t, svc)
	b := startedAttempt(t, svc)

	if err := svc.Submit(a); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := svc.Submit(b); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if b.State != StateAlreadyDone {
		t.Errorf("second attempt state = %s, want already_done", b.State)
	}
	if results.inserts != 1 {
		t.Errorf("expected 1 insert, got %d", results.inserts)
	}
}

func TestServiceSubmitConflict(t *testing.T) {
	results := newFakeResults()
	svc, _ := newTestService(results)
	a := startedAttempt(t, svc)

	// Another request stored a result after this attempt passed its check.
	results.insertErr = store.ErrConflict
	if err := svc.Submit(a); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("Submit error = %v, want ErrAlreadySubmitted", err)
	}
	if a.State != StateGraded || a.Outcome.Saved {
		t.Errorf("state = %s saved = %v, want graded and unsaved", a.State, a.Outcome.Saved)
	}
}

func TestServiceSubmitStorageFailure(t *testing.T) {
	results := newFakeResults()
	results.insertErr = errors.New("connection refused")
	svc, _ := newTestService(results)
	a := startedAttempt(t, svc)
	_ = svc.Select(a, 0, "A")

	err := svc.Submit(a)
	if err == nil {
		t.Fatal("expected storage error")
	}
	if a.State != StateGraded || a.Outcome == nil || a.Outcome.Score != 25 {
		t.Errorf("grading must survive the failed save: state %s outcome %+v", a.State, a.Outcome)
	}
	if a.Outcome.Saved {
		t.Error("outcome must not be marked saved")
	}
}

func TestServiceTimeout(t *testing.T) {
	results := newFakeResults()
	svc, clock := newTestService(results)
	a := startedAttempt(t, svc)

	clock.Advance(DefaultDuration + time.Second)
	if err := svc.Tick(a); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if a.State != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", a.State)
	}
	if err := svc.Submit(a); !errors.Is(err, ErrFinished) {
		t.Errorf("Submit after timeout error = %v, want ErrFinished", err)
	}
	if results.inserts != 0 {
		t.Errorf("timed-out attempt must not be stored, got %d inserts", results.inserts)
	}
}
