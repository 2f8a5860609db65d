package session

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/ujian/internal/exam"
	"github.com/pavelanni/ujian/internal/model"
)

func newTestManager(idle time.Duration) (*Manager, *time.Time) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewManager(idle)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestCreateAndGet(t *testing.T) {
	m, _ := newTestManager(time.Minute)

	s, err := m.Create(model.User{Username: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(s.Token) != 64 {
		t.Errorf("expected 64-char hex token, got %q", s.Token)
	}

	got, expired := m.Get(s.Token)
	if got != s || expired {
		t.Errorf("Get = %p, %v; want %p, false", got, expired, s)
	}

	got, expired = m.Get("unknown")
	if got != nil || expired {
		t.Errorf("Get(unknown) = %v, %v; want nil, false", got, expired)
	}

	other, _ := m.Create(model.User{Username: "bob"})
	if other.Token == s.Token {
		t.Error("tokens must be unique")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestIdleExpiry(t *testing.T) {
	m, now := newTestManager(10 * time.Minute)

	s, _ := m.Create(model.User{Username: "alice"})
	s.Exam = exam.Attempt{State: exam.StateIdentified}

	// Activity keeps the session alive.
	*now = now.Add(9 * time.Minute)
	if got, _ := m.Get(s.Token); got == nil {
		t.Fatal("session expired too early")
	}
	*now = now.Add(9 * time.Minute)
	if got, _ := m.Get(s.Token); got == nil {
		t.Fatal("activity should have refreshed the session")
	}

	*now = now.Add(10*time.Minute + time.Second)
	got, expired := m.Get(s.Token)
	if got != nil || !expired {
		t.Fatalf("Get after idle = %v, %v; want nil, true", got, expired)
	}

	// The state is gone for good.
	got, expired = m.Get(s.Token)
	if got != nil || expired {
		t.Errorf("second Get = %v, %v; want nil, false", got, expired)
	}
}

func TestSweepAndDelete(t *testing.T) {
	m, now := newTestManager(time.Minute)

	idle, _ := m.Create(model.User{Username: "idle"})
	*now = now.Add(50 * time.Second)
	active, _ := m.Create(model.User{Username: "active"})
	*now = now.Add(30 * time.Second)

	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if got, _ := m.Get(idle.Token); got != nil {
		t.Error("idle session should be gone")
	}
	if got, _ := m.Get(active.Token); got == nil {
		t.Error("active session should survive")
	}

	m.Delete(active.Token)
	if m.Len() != 0 {
		t.Errorf("Len = %d after delete, want 0", m.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestResetExam(t *testing.T) {
	s := &Session{Exam: exam.Attempt{State: exam.StateGraded}}
	s.ResetExam()
	if s.Exam.State != "" {
		t.Errorf("state after reset = %q, want empty", s.Exam.State)
	}
}

func TestResetExamRemembersFinished(t *testing.T) {
	ai := model.Identity{Name: "Budi", StudentID: "2201", Class: "TI-1", Course: "AI"}
	net := ai
	net.Course = "Jaringan"

	tests := []struct {
		state exam.State
		want  bool
	}{
		{exam.StateTimedOut, true},
		{exam.StateGraded, true},
		{exam.StateIdentified, false},
		{exam.StateInProgress, false},
		{exam.StateAlreadyDone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			s := &Session{Exam: exam.Attempt{State: tt.state, Identity: ai}}
			s.ResetExam()
			if got := s.Finished(ai); got != tt.want {
				t.Errorf("Finished(AI) = %v, want %v", got, tt.want)
			}
			if s.Finished(net) {
				t.Error("another course must stay open")
			}
		})
	}
}
