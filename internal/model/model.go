package model

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a registered account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         UserRole  `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// IsAdmin reports whether the user may use the admin pages.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Labels are the option labels of a multiple-choice question, in option order.
var Labels = [4]string{"A", "B", "C", "D"}

// Question represents a multiple-choice exam question.
type Question struct {
	ID      int64  `db:"id"`
	Course  string `db:"matkul" validate:"required"`
	Prompt  string `db:"pertanyaan" validate:"required"`
	Option1 string `db:"opsi_1" validate:"required"`
	Option2 string `db:"opsi_2" validate:"required"`
	Option3 string `db:"opsi_3" validate:"required"`
	Option4 string `db:"opsi_4" validate:"required"`
	Answer  string `db:"jawaban" validate:"required,oneof=A B C D"`
}

// Options returns the four option texts in label order.
func (q Question) Options() [4]string {
	return [4]string{q.Option1, q.Option2, q.Option3, q.Option4}
}

// Validate checks that every field is present and the answer is a known label.
func (q Question) Validate() error {
	return validate.Struct(q)
}

// Identity is what a student declares before starting an exam.
type Identity struct {
	Name      string `validate:"required"`
	StudentID string `validate:"required"`
	Class     string `validate:"required"`
	Course    string `validate:"required"`
}

// Normalize trims surrounding whitespace from every field.
func (id Identity) Normalize() Identity {
	return Identity{
		Name:      strings.TrimSpace(id.Name),
		StudentID: strings.TrimSpace(id.StudentID),
		Class:     strings.TrimSpace(id.Class),
		Course:    strings.TrimSpace(id.Course),
	}
}

// Validate reports an error when any field is empty.
func (id Identity) Validate() error {
	return validate.Struct(id.Normalize())
}

// Result is the persisted outcome of one completed attempt.
type Result struct {
	ID        int64     `db:"id"`
	Name      string    `db:"nama"`
	StudentID string    `db:"nim"`
	Course    string    `db:"matkul"`
	Score     float64   `db:"skor"`
	Time      time.Time `db:"waktu"`
}

// CourseAverage is the mean score of one course.
type CourseAverage struct {
	Course  string  `db:"matkul"`
	Average float64 `db:"rata_rata"`
	Count   int     `db:"jumlah"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Courses       []string      // selectable on the identity form
	ExamDuration  time.Duration // time allowed for one attempt
	IdleTimeout   time.Duration // inactivity before forced logout
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
}
