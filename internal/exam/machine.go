// Package exam implements the single-attempt, timed exam workflow as an
// explicit state machine. Transition is pure; Service performs the storage
// round trips around it.
package exam

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pavelanni/ujian/internal/model"
)

// DefaultDuration is the time allowed for one attempt.
const DefaultDuration = 5 * time.Minute

// State is the position of an attempt in the exam workflow.
type State string

const (
	StateUnidentified State = "unidentified"
	StateIdentified   State = "identified"
	StateInProgress   State = "in_progress"
	StateGraded       State = "graded"
	StateTimedOut     State = "timed_out"
	StateAlreadyDone  State = "already_done"
)

// Terminal reports whether no further event can change the state.
func (s State) Terminal() bool {
	return s == StateGraded || s == StateTimedOut || s == StateAlreadyDone
}

var (
	ErrIncompleteIdentity = errors.New("identity is incomplete")
	ErrNoQuestions        = errors.New("no questions for this course")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrFinished           = errors.New("attempt already finished")
	ErrUnexpectedEvent    = errors.New("event not allowed in current state")
)

// Attempt is one student's pass through a course exam. An empty answer means
// the question has not been answered.
type Attempt struct {
	State     State
	Identity  model.Identity
	StartedAt time.Time
	Questions []model.Question
	Answers   []string
	Outcome   *Outcome
}

// Event is an input to Transition.
type Event interface {
	event()
}

// Identify submits the identity form.
type Identify struct {
	Identity model.Identity
}

// Gate reports whether the student already has a result for the course.
type Gate struct {
	PriorAttempt bool
}

// Start begins the timed phase.
type Start struct {
	At           time.Time
	PriorAttempt bool
	Questions    []model.Question
}

// Select sets the answer of question Index (zero-based) to Label.
type Select struct {
	At    time.Time
	Index int
	Label string
}

// Tick re-evaluates the clock without other input.
type Tick struct {
	At time.Time
}

// Submit finishes the attempt.
type Submit struct {
	At           time.Time
	PriorAttempt bool
}

func (Identify) event() {}
func (Gate) event()     {}
func (Start) event()    {}
func (Select) event()   {}
func (Tick) event()     {}
func (Submit) event()   {}

// Effect is a side effect the caller must carry out after a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectPersistResult asks the caller to store Attempt.Outcome.
	EffectPersistResult
)

// Transition computes the next attempt for ev. The input attempt is not
// modified. On error the returned attempt equals a and the effect is EffectNone.
func Transition(a Attempt, ev Event, limit time.Duration) (Attempt, Effect, error) {
	if a.State == "" {
		a.State = StateUnidentified
	}
	if a.State.Terminal() {
		return a, EffectNone, ErrFinished
	}

	if a.State == StateInProgress {
		if at, ok := eventTime(ev); ok && Remaining(a, at, limit) <= 0 {
			next := a
			next.State = StateTimedOut
			return next, EffectNone, nil
		}
	}

	switch ev := ev.(type) {
	case Identify:
		if a.State != StateUnidentified {
			return a, EffectNone, ErrUnexpectedEvent
		}
		id := ev.Identity.Normalize()
		if err := id.Validate(); err != nil {
			return a, EffectNone, fmt.Errorf("%w: %v", ErrIncompleteIdentity, err)
		}
		next := a
		next.State = StateIdentified
		next.Identity = id
		return next, EffectNone, nil

	case Gate:
		if a.State != StateIdentified {
			return a, EffectNone, nil
		}
		if ev.PriorAttempt {
			next := a
			next.State = StateAlreadyDone
			return next, EffectNone, nil
		}
		return a, EffectNone, nil

	case Start:
		if a.State != StateIdentified {
			return a, EffectNone, ErrUnexpectedEvent
		}
		if ev.PriorAttempt {
			next := a
			next.State = StateAlreadyDone
			return next, EffectNone, nil
		}
		if len(ev.Questions) == 0 {
			return a, EffectNone, ErrNoQuestions
		}
		next := a
		next.State = StateInProgress
		next.StartedAt = ev.At
		next.Questions = slices.Clone(ev.Questions)
		next.Answers = make([]string, len(ev.Questions))
		return next, EffectNone, nil

	case Select:
		if a.State != StateInProgress {
			return a, EffectNone, ErrUnexpectedEvent
		}
		if ev.Index < 0 || ev.Index >= len(a.Answers) || !validLabel(ev.Label) {
			return a, EffectNone, ErrInvalidAnswer
		}
		next := a
		next.Answers = slices.Clone(a.Answers)
		next.Answers[ev.Index] = ev.Label
		return next, EffectNone, nil

	case Tick:
		return a, EffectNone, nil

	case Submit:
		if a.State != StateInProgress {
			return a, EffectNone, ErrUnexpectedEvent
		}
		next := a
		if ev.PriorAttempt {
			next.State = StateAlreadyDone
			return next, EffectNone, nil
		}
		outcome := Grade(a.Questions, a.Answers)
		next.State = StateGraded
		next.Outcome = &outcome
		return next, EffectPersistResult, nil
	}

	return a, EffectNone, ErrUnexpectedEvent
}

// Remaining returns the time left in an in-progress attempt at now, never negative.
func Remaining(a Attempt, now time.Time, limit time.Duration) time.Duration {
	if a.State != StateInProgress {
		return 0
	}
	left := limit - now.Sub(a.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

func eventTime(ev Event) (time.Time, bool) {
	switch ev := ev.(type) {
	case Select:
		return ev.At, true
	case Tick:
		return ev.At, true
	case Submit:
		return ev.At, true
	}
	return time.Time{}, false
}

func validLabel(label string) bool {
	return slices.Contains(model.Labels[:], label)
}
