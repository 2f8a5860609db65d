package auth

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.New(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s)
}

func TestHashPassword(t *testing.T) {
	h1, err := HashPassword("rahasia")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("rahasia")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if h1 == h2 {
		t.Error("expected different encodings for the same password")
	}
	raw, err := base64.StdEncoding.DecodeString(h1)
	if err != nil {
		t.Fatalf("hash is not base64: %v", err)
	}
	if len(raw) != saltLen+keyLen {
		t.Errorf("expected %d decoded bytes, got %d", saltLen+keyLen, len(raw))
	}

	for _, h := range []string{h1, h2} {
		if !CheckPassword("rahasia", h) {
			t.Error("expected password to verify against its own hash")
		}
		if CheckPassword("Rahasia", h) {
			t.Error("expected a different password to fail")
		}
	}
}

func TestCheckPasswordMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"salt only", base64.StdEncoding.EncodeToString(make([]byte, saltLen))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if CheckPassword("pw", tt.encoded) {
				t.Errorf("CheckPassword(%q) = true, want false", tt.encoded)
			}
		})
	}
}

func TestRegisterAndVerify(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Register("alice", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := svc.Verify("alice", "pw1")
	if err != nil {
		t.Fatalf("Verify(correct): %v", err)
	}
	if u.Username != "alice" || u.Role != model.UserRoleStudent {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := svc.Verify("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Verify("nobody", "pw1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify(unknown) error = %v, want ErrInvalidCredentials", err)
	}

	exists, err := svc.Exists("alice")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("expected alice to exist")
	}

	if err := svc.Register("alice", "pw2"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("second Register error = %v, want ErrUsernameTaken", err)
	}
	// The original password still works.
	if _, err := svc.Verify("alice", "pw1"); err != nil {
		t.Errorf("Verify after rejected re-register: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name, username, password string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"empty password", "bob", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Register(tt.username, tt.password); !errors.Is(err, ErrEmptyCredentials) {
				t.Errorf("Register error = %v, want ErrEmptyCredentials", err)
			}
		})
	}
}

func TestRegisterAdmin(t *testing.T) {
	svc := newTestService(t)

	if err := svc.RegisterAdmin("admin", "s3cret"); err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}
	u, err := svc.Verify("admin", "s3cret")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("expected admin role, got %q", u.Role)
	}
}
