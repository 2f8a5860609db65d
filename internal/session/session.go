// Package session keeps per-user state in process memory: who is signed in
// and the exam attempt in progress. Sessions expire after a period of
// inactivity.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/ujian/internal/exam"
	"github.com/pavelanni/ujian/internal/metrics"
	"github.com/pavelanni/ujian/internal/model"
)

// DefaultIdleTimeout is the inactivity after which a session is dropped.
const DefaultIdleTimeout = 10 * time.Minute

// Session is the state of one signed-in browser. Lock it while reading or
// changing Exam.
type Session struct {
	mu         sync.Mutex
	Token      string
	User       model.User
	Exam       exam.Attempt
	lastActive time.Time

	// finished holds the student ID and course of every attempt that ran to
	// its end in this session, saved or not.
	finished map[[2]string]bool
}

// Lock serializes requests of the same session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// ResetExam discards the current attempt. A graded or timed-out attempt is
// remembered first, so Finished keeps refusing its course.
func (s *Session) ResetExam() {
	if st := s.Exam.State; st == exam.StateGraded || st == exam.StateTimedOut {
		if s.finished == nil {
			s.finished = make(map[[2]string]bool)
		}
		id := s.Exam.Identity
		s.finished[[2]string{id.StudentID, id.Course}] = true
	}
	s.Exam = exam.Attempt{}
}

// Finished reports whether an attempt by id's student at id's course already
// ended in this session.
func (s *Session) Finished(id model.Identity) bool {
	return s.finished[[2]string{id.StudentID, id.Course}]
}

// Manager holds all live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

// NewManager creates a manager. A non-positive idle selects DefaultIdleTimeout.
func NewManager(idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// IdleTimeout returns the inactivity after which sessions are dropped.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idle
}

// Create starts a session for user and returns it.
func (m *Manager) Create(user model.User) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	s := &Session{Token: token, User: user, lastActive: m.now()}

	m.mu.Lock()
	m.sessions[token] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return s, nil
}

// Get returns the session for token and marks it active. expired is true when
// the token belonged to a session that was dropped for inactivity just now.
func (m *Manager) Get(token string) (s *Session, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(s.lastActive) > m.idle {
		delete(m.sessions, token)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		slog.Info("session expired", "username", s.User.Username)
		return nil, true
	}
	s.lastActive = now
	return s, false
}

// Delete removes a session.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every idle session and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if now.Sub(s.lastActive) > m.idle {
			delete(m.sessions, token)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("swept idle sessions", "count", n)
			}
		}
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
