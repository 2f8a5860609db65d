package exam

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/ujian/internal/model"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func validIdentity() model.Identity {
	return model.Identity{Name: "Budi", StudentID: "2201", Class: "TI-1A", Course: "AI"}
}

func sampleQuestions(answers ...string) []model.Question {
	qs := make([]model.Question, len(answers))
	for i, ans := range answers {
		qs[i] = model.Question{
			ID: int64(i + 1), Course: "AI", Prompt: "q",
			Option1: "a", Option2: "b", Option3: "c", Option4: "d",
			Answer: ans,
		}
	}
	return qs
}

func mustTransition(t *testing.T, a Attempt, ev Event) Attempt {
	t.Helper()
	next, _, err := Transition(a, ev, DefaultDuration)
	if err != nil {
		t.Fatalf("Transition(%s, %T): %v", a.State, ev, err)
	}
	return next
}

func inProgress(t *testing.T, answers ...string) Attempt {
	t.Helper()
	a := mustTransition(t, Attempt{}, Identify{Identity: validIdentity()})
	return mustTransition(t, a, Start{At: t0, Questions: sampleQuestions(answers...)})
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name    string
		id      model.Identity
		want    State
		wantErr error
	}{
		{"complete", validIdentity(), StateIdentified, nil},
		{"missing name", model.Identity{StudentID: "1", Class: "c", Course: "AI"}, StateUnidentified, ErrIncompleteIdentity},
		{"missing class", model.Identity{Name: "n", StudentID: "1", Course: "AI"}, StateUnidentified, ErrIncompleteIdentity},
		{"blank student id", model.Identity{Name: "n", StudentID: "  ", Class: "c", Course: "AI"}, StateUnidentified, ErrIncompleteIdentity},
		{"missing course", model.Identity{Name: "n", StudentID: "1", Class: "c"}, StateUnidentified, ErrIncompleteIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effect, err := Transition(Attempt{}, Identify{Identity: tt.id}, DefaultDuration)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if next.State != tt.want {
				t.Errorf("state = %s, want %s", next.State, tt.want)
			}
			if effect != EffectNone {
				t.Errorf("effect = %v, want none", effect)
			}
		})
	}
}

func TestIdentifyTrimsFields(t *testing.T) {
	id := model.Identity{Name: " Budi ", StudentID: "2201\n", Class: "TI", Course: "AI"}
	a := mustTransition(t, Attempt{}, Identify{Identity: id})
	if a.Identity.Name != "Budi" || a.Identity.StudentID != "2201" {
		t.Errorf("expected trimmed identity, got %+v", a.Identity)
	}
}

func TestGateAndStart(t *testing.T) {
	identified := mustTransition(t, Attempt{}, Identify{Identity: validIdentity()})

	t.Run("gate without prior attempt keeps waiting", func(t *testing.T) {
		a := mustTransition(t, identified, Gate{PriorAttempt: false})
		if a.State != StateIdentified {
			t.Errorf("state = %s, want identified", a.State)
		}
	})

	t.Run("gate with prior attempt", func(t *testing.T) {
		a := mustTransition(t, identified, Gate{PriorAttempt: true})
		if a.State != StateAlreadyDone {
			t.Errorf("state = %s, want already_done", a.State)
		}
	})

	t.Run("start with prior attempt", func(t *testing.T) {
		a := mustTransition(t, identified, Start{At: t0, PriorAttempt: true, Questions: sampleQuestions("A")})
		if a.State != StateAlreadyDone {
			t.Errorf("state = %s, want already_done", a.State)
		}
		if a.Questions != nil {
			t.Error("refused start must not load questions")
		}
	})

	t.Run("start without questions", func(t *testing.T) {
		a, _, err := Transition(identified, Start{At: t0}, DefaultDuration)
		if !errors.Is(err, ErrNoQuestions) {
			t.Fatalf("error = %v, want ErrNoQuestions", err)
		}
		if a.State != StateIdentified {
			t.Errorf("state = %s, want identified", a.State)
		}
	})

	t.Run("start", func(t *testing.T) {
		a := mustTransition(t, identified, Start{At: t0, Questions: sampleQuestions("A", "B", "C")})
		if a.State != StateInProgress {
			t.Fatalf("state = %s, want in_progress", a.State)
		}
		if !a.StartedAt.Equal(t0) {
			t.Errorf("StartedAt = %v, want %v", a.StartedAt, t0)
		}
		if len(a.Answers) != 3 {
			t.Fatalf("expected 3 answer slots, got %d", len(a.Answers))
		}
		for i, ans := range a.Answers {
			if ans != "" {
				t.Errorf("slot %d = %q, want unanswered", i, ans)
			}
		}
	})

	t.Run("start before identify", func(t *testing.T) {
		_, _, err := Transition(Attempt{}, Start{At: t0, Questions: sampleQuestions("A")}, DefaultDuration)
		if !errors.Is(err, ErrUnexpectedEvent) {
			t.Errorf("error = %v, want ErrUnexpectedEvent", err)
		}
	})
}

func TestSelect(t *testing.T) {
	a := inProgress(t, "A", "B")

	b := mustTransition(t, a, Select{At: t0.Add(time.Second), Index: 1, Label: "C"})
	b = mustTransition(t, b, Select{At: t0.Add(2 * time.Second), Index: 1, Label: "B"})
	if b.Answers[1] != "B" {
		t.Errorf("answer = %q, want B", b.Answers[1])
	}
	if a.Answers[1] != "" {
		t.Error("Transition must not modify its input")
	}

	for _, ev := range []Select{
		{At: t0, Index: -1, Label: "A"},
		{At: t0, Index: 2, Label: "A"},
		{At: t0, Index: 0, Label: "E"},
		{At: t0, Index: 0, Label: ""},
	} {
		if _, _, err := Transition(a, ev, DefaultDuration); !errors.Is(err, ErrInvalidAnswer) {
			t.Errorf("Select(%d, %q) error = %v, want ErrInvalidAnswer", ev.Index, ev.Label, err)
		}
	}
}

func TestTimeout(t *testing.T) {
	a := inProgress(t, "A")

	still := mustTransition(t, a, Tick{At: t0.Add(DefaultDuration - time.Second)})
	if still.State != StateInProgress {
		t.Fatalf("state = %s, want in_progress", still.State)
	}
	if got := Remaining(still, t0.Add(4*time.Minute), DefaultDuration); got != time.Minute {
		t.Errorf("Remaining = %v, want 1m", got)
	}

	expired := mustTransition(t, a, Tick{At: t0.Add(DefaultDuration)})
	if expired.State != StateTimedOut {
		t.Errorf("state = %s, want timed_out", expired.State)
	}

	late, effect, err := Transition(a, Submit{At: t0.Add(6 * time.Minute)}, DefaultDuration)
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if late.State != StateTimedOut || effect != EffectNone || late.Outcome != nil {
		t.Errorf("late submit: state %s effect %v outcome %v, want timed_out without result", late.State, effect, late.Outcome)
	}

	if got := Remaining(a, t0.Add(time.Hour), DefaultDuration); got != 0 {
		t.Errorf("Remaining after expiry = %v, want 0", got)
	}
}

func TestSubmit(t *testing.T) {
	a := inProgress(t, "A", "B", "C", "D")
	for i, label := range []string{"A", "B", "C", "A"} {
		a = mustTransition(t, a, Select{At: t0, Index: i, Label: label})
	}

	graded, effect, err := Transition(a, Submit{At: t0.Add(time.Minute)}, DefaultDuration)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if graded.State != StateGraded {
		t.Fatalf("state = %s, want graded", graded.State)
	}
	if effect != EffectPersistResult {
		t.Errorf("effect = %v, want persist", effect)
	}
	if graded.Outcome.Score != 75 {
		t.Errorf("score = %v, want 75", graded.Outcome.Score)
	}

	refused, effect, err := Transition(a, Submit{At: t0.Add(time.Minute), PriorAttempt: true}, DefaultDuration)
	if err != nil {
		t.Fatalf("Submit with prior attempt: %v", err)
	}
	if refused.State != StateAlreadyDone || effect != EffectNone {
		t.Errorf("state %s effect %v, want already_done without persist", refused.State, effect)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []State{StateGraded, StateTimedOut, StateAlreadyDone} {
		a := Attempt{State: s}
		for _, ev := range []Event{
			Identify{Identity: validIdentity()},
			Start{At: t0, Questions: sampleQuestions("A")},
			Select{At: t0, Index: 0, Label: "A"},
			Submit{At: t0},
			Tick{At: t0},
		} {
			next, _, err := Transition(a, ev, DefaultDuration)
			if !errors.Is(err, ErrFinished) {
				t.Errorf("%s + %T: error = %v, want ErrFinished", s, ev, err)
			}
			if next.State != s {
				t.Errorf("%s + %T moved to %s", s, ev, next.State)
			}
		}
	}
}
