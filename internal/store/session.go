package store

import (
	"sync"

	"github.com/karpool/karpool-client/internal/domain/user"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// SessionSnapshot is the published state of the session store
type SessionSnapshot struct {
	LoggedIn bool       `json:"loggedIn"`
	User     *user.User `json:"user,omitempty"`
	Role     user.Role  `json:"role"`
}

// Session holds the logged-in profile and the active role. The bearer token
// itself lives in a session.TokenStore.
type Session struct {
	notifier

	mu   sync.RWMutex
	user *user.User
	role user.Role
}

// NewSession creates a logged-out session in passenger mode
func NewSession() *Session {
	return &Session{role: user.RolePassenger}
}

// SetUser stores the profile returned at login
func (s *Session) SetUser(u user.User) {
	s.mu.Lock()
	s.user = &u
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameSession, Snapshot: snap})
}

// User returns a copy of the current profile
func (s *Session) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return user.User{}, false
	}
	return *s.user, true
}

// Role returns the active role
func (s *Session) Role() user.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole switches the active role. Driver mode needs a driver profile.
func (s *Session) SetRole(role user.Role) error {
	if !role.IsValid() {
		return apperrors.ErrInvalidRole
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return apperrors.ErrNotLoggedIn
	}
	if role == user.RoleDriver && !s.user.CanDrive() {
		s.mu.Unlock()
		return apperrors.ErrDriverProfileRequired
	}
	s.role = role
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameSession, Snapshot: snap})
	return nil
}

// Clear forgets the user and returns to passenger mode
func (s *Session) Clear() {
	s.mu.Lock()
	s.user = nil
	s.role = user.RolePassenger
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameSession, Snapshot: snap})
}

// Snapshot returns the current state
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{Role: s.role}
	if s.user != nil {
		u := *s.user
		snap.User = &u
		snap.LoggedIn = true
	}
	return snap
}
