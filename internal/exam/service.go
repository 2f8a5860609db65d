package exam

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/ujian/internal/metrics"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/store"
)

// ErrAlreadySubmitted is returned when storage already holds a result for
// the student and course at submit time.
var ErrAlreadySubmitted = errors.New("exam already submitted")

// QuestionSource supplies the questions of a course.
type QuestionSource interface {
	ListQuestionsByCourse(course string) ([]model.Question, error)
}

// ResultStore records and looks up completed attempts.
type ResultStore interface {
	HasAttempt(studentID, course string) (bool, error)
	InsertResult(name, studentID, course string, score float64) (int64, error)
}

// Service drives attempts through Transition, doing the storage work each
// event needs. Callers serialize access to a given Attempt.
type Service struct {
	questions QuestionSource
	results   ResultStore
	limit     time.Duration
	now       func() time.Time
}

// NewService creates an exam service. A non-positive limit selects DefaultDuration.
func NewService(questions QuestionSource, results ResultStore, limit time.Duration) *Service {
	if limit <= 0 {
		limit = DefaultDuration
	}
	return &Service{questions: questions, results: results, limit: limit, now: time.Now}
}

// Limit returns the time allowed for one attempt.
func (s *Service) Limit() time.Duration {
	return s.limit
}

// Remaining returns the time left in a.
func (s *Service) Remaining(a *Attempt) time.Duration {
	return Remaining(*a, s.now(), s.limit)
}

// Identify records the student's identity.
func (s *Service) Identify(a *Attempt, id model.Identity) error {
	return s.apply(a, Identify{Identity: id})
}

// Gate moves an identified attempt to StateAlreadyDone when a result exists.
func (s *Service) Gate(a *Attempt) error {
	if a.State != StateIdentified {
		return nil
	}
	prior, err := s.results.HasAttempt(a.Identity.StudentID, a.Identity.Course)
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	return s.apply(a, Gate{PriorAttempt: prior})
}

// Refuse moves an identified attempt to StateAlreadyDone without asking
// storage. It is for courses whose attempt ended earlier without a stored
// result, such as a timeout.
func (s *Service) Refuse(a *Attempt) error {
	if a.State != StateIdentified {
		return nil
	}
	return s.apply(a, Gate{PriorAttempt: true})
}

// Start begins the timed phase, or refuses with StateAlreadyDone.
func (s *Service) Start(a *Attempt) error {
	if a.State != StateIdentified {
		return s.apply(a, Start{At: s.now()})
	}
	prior, err := s.results.HasAttempt(a.Identity.StudentID, a.Identity.Course)
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	ev := Start{At: s.now(), PriorAttempt: prior}
	if !prior {
		ev.Questions, err = s.questions.ListQuestionsByCourse(a.Identity.Course)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
	}
	if err := s.apply(a, ev); err != nil {
		return err
	}
	if a.State == StateInProgress {
		metrics.AttemptsStarted.WithLabelValues(a.Identity.Course).Inc()
		slog.Info("exam started", "nim", a.Identity.StudentID, "course", a.Identity.Course, "questions", len(a.Questions))
	}
	return nil
}

// Select records an answer.
func (s *Service) Select(a *Attempt, index int, label string) error {
	return s.apply(a, Select{At: s.now(), Index: index, Label: label})
}

// Tick expires the attempt if its time is up.
func (s *Service) Tick(a *Attempt) error {
	return s.apply(a, Tick{At: s.now()})
}

// Submit grades the attempt and stores the result. If storing fails the
// attempt stays graded, Outcome.Saved is false and the error is returned.
func (s *Service) Submit(a *Attempt) error {
	ev := Submit{At: s.now()}
	if a.State == StateInProgress && Remaining(*a, ev.At, s.limit) > 0 {
		prior, err := s.results.HasAttempt(a.Identity.StudentID, a.Identity.Course)
		if err != nil {
			return fmt.Errorf("check attempt: %w", err)
		}
		ev.PriorAttempt = prior
	}

	next, effect, err := Transition(*a, ev, s.limit)
	if err != nil {
		return err
	}
	*a = next
	s.observe(a)
	if effect != EffectPersistResult {
		return nil
	}

	id := a.Identity
	_, err = s.results.InsertResult(id.Name, id.StudentID, id.Course, a.Outcome.Score)
	if errors.Is(err, store.ErrConflict) {
		return ErrAlreadySubmitted
	}
	if err != nil {
		slog.Error("failed to save exam result", "nim", id.StudentID, "course", id.Course, "error", err)
		return fmt.Errorf("save result: %w", err)
	}
	a.Outcome.Saved = true
	return nil
}

func (s *Service) apply(a *Attempt, ev Event) error {
	next, _, err := Transition(*a, ev, s.limit)
	if err != nil {
		return err
	}
	*a = next
	s.observe(a)
	return nil
}

func (s *Service) observe(a *Attempt) {
	course := a.Identity.Course
	switch a.State {
	case StateTimedOut:
		metrics.AttemptsFinished.WithLabelValues(course, string(StateTimedOut)).Inc()
		slog.Info("exam timed out", "nim", a.Identity.StudentID, "course", course)
	case StateAlreadyDone:
		metrics.AttemptsFinished.WithLabelValues(course, string(StateAlreadyDone)).Inc()
	case StateGraded:
		metrics.AttemptsFinished.WithLabelValues(course, string(StateGraded)).Inc()
		metrics.ScoreHistogram.WithLabelValues(course).Observe(a.Outcome.Score)
		slog.Info("exam graded", "nim", a.Identity.StudentID, "course", course, "score", a.Outcome.Score)
	}
}
