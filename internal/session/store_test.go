package session_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/session"
	"github.com/quizbd/quizbd-go/internal/storage"
)

func TestStore_TokenAndUserAreAtomic(t *testing.T) {
	type op func(s *session.Store)

	login := func(token, id string) op {
		return func(s *session.Store) { s.Login(token, domain.User{ID: id, Role: domain.RoleStudent}) }
	}
	logout := func() op {
		return func(s *session.Store) { s.Logout() }
	}
	update := func(name string) op {
		return func(s *session.Store) { s.UpdateUser(session.UserPatch{Name: &name}) }
	}

	tests := map[string]struct {
		arrange func() []op
	}{
		"login then logout":                 {arrange: func() []op { return []op{login("t1", "u1"), logout()} }},
		"update before any login":           {arrange: func() []op { return []op{update("x"), login("t1", "u1")} }},
		"rejected login keeps prior state":  {arrange: func() []op { return []op{login("t1", "u1"), login("", "u2")} }},
		"relogin replaces atomically":       {arrange: func() []op { return []op{login("t1", "u1"), login("t2", "u2"), update("y")} }},
		"logout twice then partial login":   {arrange: func() []op { return []op{logout(), logout(), login("t3", "")} }},
		"update after logout stays logged out": {arrange: func() []op { return []op{login("t1", "u1"), logout(), update("z")} }},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := session.NewStore(session.Config{Storage: storage.NewMemory()})

			check := func() {
				_, hasToken := s.Token()
				_, hasUser := s.User()
				assert.Equal(t, hasToken, hasUser, "token and user must be present or absent together")
				assert.Equal(t, hasToken, s.IsAuthenticated())
			}

			check()
			for _, o := range tt.arrange() {
				o(s)
				check()
			}
		})
	}
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	st := storage.NewMemory()

	s := session.NewStore(session.Config{Storage: st})
	s.Login("tok-1", domain.User{ID: "u1", Name: "Mina", Role: domain.RoleStudent, ClassLevel: 8})

	// A store rehydrated from the same storage sees the identical session.
	s2 := session.NewStore(session.Config{Storage: st})

	tok, ok := s2.Token()
	require.True(t, ok)
	require.Equal(t, "tok-1", tok)

	u, ok := s2.User()
	require.True(t, ok)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "Mina", u.Name)
	require.Equal(t, 8, u.ClassLevel)
	require.Equal(t, domain.RoleStudent, s2.Role())
}

func TestStore_CorruptPersistedSession(t *testing.T) {
	tests := map[string]string{
		"not json":      `{definitely not json`,
		"missing token": `{"user":{"id":"u1"}}`,
		"missing user":  `{"token":"t1"}`,
	}

	for name, stored := range tests {
		stored := stored
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			st := storage.NewMemory()
			require.NoError(t, st.Set("auth", []byte(stored)))

			s := session.NewStore(session.Config{Storage: st})

			assert.False(t, s.IsAuthenticated())
			_, ok := st.Get("auth")
			assert.False(t, ok, "corrupt key must be cleared")
		})
	}
}

func TestStore_LogoutClearsLegacyKeys(t *testing.T) {
	st := storage.NewMemory()
	require.NoError(t, st.Set("teacher", []byte(`{"token":"old"}`)))
	require.NoError(t, st.Set("teacherToken", []byte(`"old"`)))

	s := session.NewStore(session.Config{Storage: st})
	s.Login("t1", domain.User{ID: "u1", Role: domain.RoleTeacher})
	s.Logout()

	for _, k := range []string{"auth", "teacher", "teacherToken"} {
		_, ok := st.Get(k)
		assert.False(t, ok, "key %q must be gone after logout", k)
	}
	assert.False(t, s.IsAuthenticated())
}

func TestStore_UpdateUserMergePatch(t *testing.T) {
	st := storage.NewMemory()
	s := session.NewStore(session.Config{Storage: st})
	s.Login("t1", domain.User{ID: "u1", Name: "Mina", Role: domain.RoleStudent, ClassLevel: 7})

	phone := "01700000000"
	avatar := "/uploads/u1.png"
	done := true
	s.CompleteProfile(&session.UserPatch{Phone: &phone, Avatar: &avatar, ProfileCompleted: &done})

	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "Mina", u.Name, "untouched fields survive the patch")
	assert.Equal(t, 7, u.ClassLevel)
	assert.Equal(t, phone, u.Phone)
	assert.Equal(t, avatar, u.Avatar)
	assert.True(t, u.ProfileCompleted)

	tok, _ := s.Token()
	assert.Equal(t, "t1", tok, "patching the user never touches the token")

	// The persisted copy mirrors the merge.
	b, ok := st.Get("auth")
	require.True(t, ok)
	var persisted domain.Session
	require.NoError(t, json.Unmarshal(b, &persisted))
	assert.Equal(t, phone, persisted.User.Phone)
}

func TestStore_CompleteProfileNilPatch(t *testing.T) {
	s := session.NewStore(session.Config{Storage: storage.NewMemory()})
	s.Login("t1", domain.User{ID: "u1", Name: "Mina"})

	s.CompleteProfile(nil)

	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "Mina", u.Name)
	assert.False(t, u.ProfileCompleted)
}
