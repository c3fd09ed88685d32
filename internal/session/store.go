package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/storage"
)

const storageKey = "auth"

// legacyStorageKeys are leftovers from earlier schema versions that kept a
// second copy of the teacher identity. Logout wipes them unconditionally.
var legacyStorageKeys = []string{"teacher", "teacherToken"}

type Config struct {
	Storage storage.Storage
}

// Store is the single source of truth for who is logged in. It keeps the
// bearer token and user profile together: consumers never observe one
// without the other. Every mutation is mirrored to durable storage.
type Store struct {
	st storage.Storage

	mu      sync.RWMutex
	session *domain.Session
}

// NewStore rehydrates the session from storage. A corrupt or half-formed
// persisted value is discarded, the key cleared, and the store starts
// logged out; rehydration never fails.
func NewStore(c Config) *Store {
	s := &Store{st: c.Storage}

	b, ok := s.st.Get(storageKey)
	if !ok {
		return s
	}

	var ss domain.Session
	if err := json.Unmarshal(b, &ss); err != nil || ss.Token == "" || ss.User.ID == "" {
		slog.Warn("session: discarding corrupt persisted session", "error", err)
		if err := s.st.Delete(storageKey); err != nil {
			slog.Warn("session: clear corrupt session key failed", "error", err)
		}
		return s
	}

	s.session = &ss
	return s
}

// Login atomically replaces any existing session. An empty token or a user
// without an ID is dropped without touching the current session, so a
// half-formed server response can never corrupt state.
func (s *Store) Login(token string, u domain.User) {
	if token == "" || u.ID == "" {
		slog.Warn("session: login dropped: missing token or user")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &domain.Session{Token: token, User: u}
	s.persist()
}

// Logout clears the in-memory session and every persisted session key,
// legacy ones included. It succeeds regardless of current state.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	for _, k := range append([]string{storageKey}, legacyStorageKeys...) {
		if err := s.st.Delete(k); err != nil {
			slog.Warn("session: clear session key failed", "key", k, "error", err)
		}
	}
}

// UserPatch is a shallow merge-patch of the user record. Nil fields are
// left untouched.
type UserPatch struct {
	Name             *string
	Email            *string
	ClassLevel       *int
	Phone            *string
	Avatar           *string
	ProfileCompleted *bool
}

// UpdateUser merge-patches the user record without touching the token.
// No-op when nobody is logged in.
func (s *Store) UpdateUser(p UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return
	}

	u := s.session.User
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.ClassLevel != nil {
		u.ClassLevel = *p.ClassLevel
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.ProfileCompleted != nil {
		u.ProfileCompleted = *p.ProfileCompleted
	}

	s.session.User = u
	s.persist()
}

// CompleteProfile applies the onboarding patch. A nil patch is dropped;
// this guards callers that forward a missing response body.
func (s *Store) CompleteProfile(p *UserPatch) {
	if p == nil {
		slog.Warn("session: complete profile dropped: nil patch")
		return
	}

	s.UpdateUser(*p)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session != nil
}

// Token returns the bearer credential of the active session, if any.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return "", false
	}

	return s.session.Token, true
}

// User returns a copy of the logged-in user's profile.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return domain.User{}, false
	}

	return s.session.User, true
}

func (s *Store) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return ""
	}

	return s.session.User.Role
}

// persist mirrors the current session to storage. Caller must hold s.mu.
func (s *Store) persist() {
	b, err := json.Marshal(s.session)
	if err != nil {
		slog.Error("session: marshal session failed", "error", err)
		return
	}

	if err := s.st.Set(storageKey, b); err != nil {
		slog.Error("session: persist session failed", "error", err)
	}
}
