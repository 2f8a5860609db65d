package store

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/pavelanni/ujian/internal/model"
)

// CreateUser inserts a new user. It returns ErrConflict if the username is taken.
func (s *Store) CreateUser(u model.User) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		s.db.Rebind(`INSERT INTO users (username, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?) RETURNING id`),
		u.Username, u.PasswordHash, u.Role, s.now(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// UserExists reports whether a user with the given username exists.
func (s *Store) UserExists(username string) (bool, error) {
	var n int
	err := s.db.Get(&n, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username)
	return n > 0, err
}

// GetUserByUsername returns a user by username, or nil if there is none.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	var u model.User
	err := s.db.Get(&u, s.db.Rebind(
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsersByRole returns the number of users holding the given role.
func (s *Store) CountUsersByRole(role model.UserRole) (int, error) {
	var count int
	err := s.db.Get(&count, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), role)
	return count, err
}
