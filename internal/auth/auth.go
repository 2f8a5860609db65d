package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/store"
)

var (
	ErrEmptyCredentials   = errors.New("username and password required")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserStore is the persistence the credential service needs.
type UserStore interface {
	UserExists(username string) (bool, error)
	GetUserByUsername(username string) (*model.User, error)
	CreateUser(u model.User) (int64, error)
}

// Service registers and verifies accounts.
type Service struct {
	users UserStore
}

// NewService creates a credential service backed by users.
func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// Exists reports whether username is registered.
func (s *Service) Exists(username string) (bool, error) {
	return s.users.UserExists(strings.TrimSpace(username))
}

// Register creates a student account.
func (s *Service) Register(username, password string) error {
	return s.create(username, password, model.UserRoleStudent)
}

// RegisterAdmin creates an administrator account.
func (s *Service) RegisterAdmin(username, password string) error {
	return s.create(username, password, model.UserRoleAdmin)
}

func (s *Service) create(username, password string, role model.UserRole) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	exists, err := s.users.UserExists(username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.users.CreateUser(model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, store.ErrConflict) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Verify checks the password of username and returns the account on success.
func (s *Service) Verify(username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
