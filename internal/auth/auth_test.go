package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

const (
	idSecret = "identity-secret"
	issuer   = "https://identity.example.com"
)

func idToken(t *testing.T, uid, email, iss string, exp time.Time) string {
	t.Helper()
	claims := idClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(idSecret))
	require.NoError(t, err)
	return s
}

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewService(mem, NewJWTVerifier(idSecret, issuer), NewSessions("session-secret", true)), mem
}

func TestSignUp(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()

	res := svc.SignUp(ctx, SignUpParams{UID: "u1", Name: "Ada", Email: "ada@example.com"})
	assert.True(t, res.Success)
	assert.Equal(t, MsgAccountCreated, res.Message)

	u, err := mem.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	res = svc.SignUp(ctx, SignUpParams{UID: "u1", Name: "Ada", Email: "ada@example.com"})
	assert.False(t, res.Success)
	assert.Equal(t, MsgUserExists, res.Message)

	res = svc.SignUp(ctx, SignUpParams{UID: "u2", Name: "Other", Email: "ADA@example.com"})
	assert.False(t, res.Success)
	assert.Equal(t, MsgEmailInUse, res.Message)
}

func TestSignUp_Validation(t *testing.T) {
	svc, mem := newService(t)

	res := svc.SignUp(context.Background(), SignUpParams{UID: "u1", Name: "Al", Email: "not-an-email"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Fields, "name")
	assert.Contains(t, res.Fields, "email")

	_, err := mem.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSignIn(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()
	require.NoError(t, mem.CreateUser(ctx, interview.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}))

	tok := idToken(t, "u1", "ada@example.com", issuer, time.Now().Add(time.Hour))
	res, cookie := svc.SignIn(ctx, SignInParams{Email: "ada@example.com", IDToken: tok})
	require.True(t, res.Success)
	assert.Equal(t, MsgSignedIn, res.Message)
	require.NotNil(t, cookie)
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	user := svc.CurrentUser(req)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, svc.IsAuthenticated(req))
}

func TestSignIn_Failures(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()
	require.NoError(t, mem.CreateUser(ctx, interview.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}))
	valid := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		params  SignInParams
		message string
	}{
		{"unknown user", SignInParams{Email: "bob@example.com", IDToken: idToken(t, "u9", "bob@example.com", issuer, valid)}, MsgUnknownUser},
		{"bad signature", SignInParams{Email: "ada@example.com", IDToken: "a.b.c"}, MsgSignInFailed},
		{"expired", SignInParams{Email: "ada@example.com", IDToken: idToken(t, "u1", "ada@example.com", issuer, time.Now().Add(-time.Hour))}, MsgSignInFailed},
		{"wrong issuer", SignInParams{Email: "ada@example.com", IDToken: idToken(t, "u1", "ada@example.com", "https://evil", valid)}, MsgSignInFailed},
		{"other subject", SignInParams{Email: "ada@example.com", IDToken: idToken(t, "u2", "ada@example.com", issuer, valid)}, MsgSignInFailed},
		{"missing token", SignInParams{Email: "ada@example.com"}, MsgInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, cookie := svc.SignIn(ctx, tt.params)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Nil(t, cookie)
		})
	}
}

func TestCurrentUser_NoOrBadCookie(t *testing.T) {
	svc, _ := newService(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, svc.CurrentUser(req))

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Nil(t, svc.CurrentUser(req))

	// Valid signature but user was never stored.
	value, err := svc.sessions.Issue("ghost")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(svc.sessions.Cookie(value))
	assert.Nil(t, svc.CurrentUser(req))
}

func TestSessions_Expiry(t *testing.T) {
	s := NewSessions("k", false)
	start := time.Now()
	s.now = func() time.Time { return start }
	value, err := s.Issue("u1")
	require.NoError(t, err)

	uid, err := s.Verify(value)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	s.now = func() time.Time { return start.Add(SessionTTL + time.Minute) }
	_, err = s.Verify(value)
	assert.Error(t, err)

	assert.Equal(t, -1, s.ClearCookie().MaxAge)
	assert.False(t, s.Cookie("v").Secure)
}

func TestRequire(t *testing.T) {
	svc, mem := newService(t)
	require.NoError(t, mem.CreateUser(context.Background(), interview.User{ID: "u1", Email: "a@b.co"}))

	h := svc.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserFrom(r.Context()).ID))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	value, err := svc.sessions.Issue("u1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(svc.sessions.Cookie(value))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}
