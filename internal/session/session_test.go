package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/authgate/internal/crypto"
	"github.com/dgellow/authgate/internal/idp"
)

const testPassword = "a-session-password-that-is-long-enough"

var testUser = User{
	ID:       "123",
	Email:    "a@b.com",
	Name:     "A B",
	Provider: idp.Google,
}

func newTestStore(t *testing.T, opts ...crypto.SealerOption) *Store {
	t.Helper()
	sealer, err := crypto.NewSealer([]byte(testPassword), SealPurpose, 30*24*time.Hour, opts...)
	require.NoError(t, err)
	return NewStore(sealer, "", true)
}

// carryCookies copies the cookies set on w onto a fresh request, like a browser would.
func carryCookies(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/api/auth/session", nil)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}

func TestStore_SaveThenGet(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	require.NoError(t, store.Save(w, testUser))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "authgate_session", cookies[0].Name)
	assert.Equal(t, 30*24*3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.NotContains(t, cookies[0].Value, "a@b.com")

	sess := store.Get(carryCookies(w))
	require.True(t, sess.IsLoggedIn)
	assert.Equal(t, testUser, *sess.User)
}

func TestStore_GetLoggedOut(t *testing.T) {
	store := newTestStore(t)

	otherSealer, err := crypto.NewSealer([]byte(testPassword), "authgate-pending-login", time.Hour)
	require.NoError(t, err)
	wrongPurpose, err := otherSealer.Seal(testUser)
	require.NoError(t, err)

	noID, err := crypto.NewSealer([]byte(testPassword), SealPurpose, time.Hour)
	require.NoError(t, err)
	emptyUser, err := noID.Seal(User{Email: "a@b.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: "not-a-sealed-value"},
		{name: "sealed for another purpose", cookie: wrongPurpose},
		{name: "user without id", cookie: emptyUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/auth/session", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "authgate_session", Value: tt.cookie})
			}

			sess := store.Get(r)
			assert.False(t, sess.IsLoggedIn)
			assert.Nil(t, sess.User)

			_, err := store.RequireAuth(r)
			assert.ErrorIs(t, err, ErrNotAuthenticated)
		})
	}
}

func TestStore_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newTestStore(t, crypto.WithClock(func() time.Time { return now }))

	w := httptest.NewRecorder()
	require.NoError(t, store.Save(w, testUser))
	r := carryCookies(w)

	now = now.Add(29 * 24 * time.Hour)
	assert.True(t, store.Get(r).IsLoggedIn)

	now = now.Add(2 * 24 * time.Hour)
	assert.False(t, store.Get(r).IsLoggedIn)
}

func TestStore_Refresh(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	require.NoError(t, store.Refresh(w, Session{}))
	assert.Empty(t, w.Result().Cookies())

	u := testUser
	w = httptest.NewRecorder()
	require.NoError(t, store.Refresh(w, Session{User: &u, IsLoggedIn: true}))
	require.Len(t, w.Result().Cookies(), 1)
	assert.True(t, store.Get(carryCookies(w)).IsLoggedIn)
}

func TestStore_SaveRequiresID(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(httptest.NewRecorder(), User{Email: "a@b.com"})
	assert.Error(t, err)
}

func TestStore_DestroyIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		require.NoError(t, store.Destroy(w))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "authgate_session", cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	}
}

func TestStore_RequireAuth(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	require.NoError(t, store.Save(w, testUser))

	user, err := store.RequireAuth(carryCookies(w))
	require.NoError(t, err)
	assert.Equal(t, testUser, user)
}

func TestStore_Middleware(t *testing.T) {
	store := newTestStore(t)

	var seen User
	protected := store.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = u
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest("GET", "/api/things", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Not authenticated", body["error"])
	})

	t.Run("with session", func(t *testing.T) {
		saved := httptest.NewRecorder()
		require.NoError(t, store.Save(saved, testUser))

		w := httptest.NewRecorder()
		protected.ServeHTTP(w, carryCookies(saved))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, testUser, seen)
	})
}

func TestSession_JSONShape(t *testing.T) {
	data, err := json.Marshal(Session{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":null,"isLoggedIn":false}`, string(data))

	u := testUser
	data, err = json.Marshal(Session{User: &u, IsLoggedIn: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":"123","email":"a@b.com","name":"A B","provider":"google"},"isLoggedIn":true}`, string(data))
}
