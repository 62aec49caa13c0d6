// Package session persists the logged-in identity across runs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Role identifies which kind of identity the session holds.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// Session is the persisted identity. At most one role is active at a time.
type Session struct {
	Role            Role      `json:"role"`
	StudentEmail    string    `json:"student_email,omitempty"`
	FacultyUsername string    `json:"faculty_username,omitempty"`
	AccessToken     string    `json:"access_token,omitempty"`
	SavedAt         time.Time `json:"saved_at"`
}

// Active reports whether the session holds a logged-in identity.
func (s Session) Active() bool {
	switch s.Role {
	case RoleStudent:
		return s.StudentEmail != ""
	case RoleFaculty:
		return s.FacultyUsername != ""
	}
	return false
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path. An empty path
// defaults to od-session.json in the user config directory.
func NewStore(path string) *Store {
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "od-portal", "session.json")
		} else {
			path = "od-session.json"
		}
	}
	return &Store{path: path}
}

// Load reads the persisted session. A missing file yields an empty session.
func (s *Store) Load() (Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}
	return sess, nil
}

// Save persists the session, replacing any previous identity.
func (s *Store) Save(sess Session) error {
	sess.SavedAt = time.Now().UTC()
	payload, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("prepare session directory: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing twice is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session file: %w", err)
	}
	return nil
}
