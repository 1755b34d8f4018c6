// Package auth handles account creation, sign-in and the session cookie.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

// User-facing messages.
const (
	MsgUserExists     = "User already exists. Please sign in instead."
	MsgEmailInUse     = "This email is already in use."
	MsgAccountCreated = "Account created successfully. Please sign in."
	MsgSignUpFailed   = "Failed to create account."
	MsgUnknownUser    = "User does not exist. Create an account instead."
	MsgSignedIn       = "Signed in successfully."
	MsgSignInFailed   = "Failed to log into an account."
	MsgInvalidInput   = "Please fix the highlighted fields."
)

// Result is the outcome of a sign-up or sign-in. Business failures are
// reported here rather than as errors.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SignUpParams creates the profile for an identity provider account.
type SignUpParams struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignInParams exchanges an ID token for a session.
type SignInParams struct {
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

// Validate returns field-level messages; empty means valid.
func (p SignUpParams) Validate() map[string]string {
	fields := map[string]string{}
	if len(strings.TrimSpace(p.Name)) < 3 {
		fields["name"] = "Name must contain at least 3 characters."
	}
	if !validEmail(p.Email) {
		fields["email"] = "Invalid email address."
	}
	if strings.TrimSpace(p.UID) == "" {
		fields["uid"] = "Missing account identifier."
	}
	return fields
}

// Validate returns field-level messages; empty means valid.
func (p SignInParams) Validate() map[string]string {
	fields := map[string]string{}
	if !validEmail(p.Email) {
		fields["email"] = "Invalid email address."
	}
	if strings.TrimSpace(p.IDToken) == "" {
		fields["idToken"] = "Missing sign-in token."
	}
	return fields
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}

// Service implements the identity contract on top of the store.
type Service struct {
	store    store.Store
	verifier IdentityVerifier
	sessions *Sessions
}

// NewService creates an auth service.
func NewService(s store.Store, verifier IdentityVerifier, sessions *Sessions) *Service {
	return &Service{store: s, verifier: verifier, sessions: sessions}
}

// SignUp stores the user profile for a new account.
func (a *Service) SignUp(ctx context.Context, p SignUpParams) Result {
	if fields := p.Validate(); len(fields) > 0 {
		return Result{Message: MsgInvalidInput, Fields: fields}
	}

	_, err := a.store.GetUser(ctx, p.UID)
	if err == nil {
		return Result{Message: MsgUserExists}
	}
	if !errors.Is(err, store.ErrNotFound) {
		slog.Error("error creating a user", "uid", p.UID, "error", err)
		return Result{Message: MsgSignUpFailed}
	}

	user := interview.User{ID: p.UID, Name: strings.TrimSpace(p.Name), Email: strings.TrimSpace(p.Email)}
	err = a.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrEmailTaken) {
		return Result{Message: MsgEmailInUse}
	}
	if err != nil {
		slog.Error("error creating a user", "uid", p.UID, "error", err)
		return Result{Message: MsgSignUpFailed}
	}

	slog.Info("user created", "uid", p.UID)
	return Result{Success: true, Message: MsgAccountCreated}
}

// SignIn verifies the ID token and returns a session cookie on success.
func (a *Service) SignIn(ctx context.Context, p SignInParams) (Result, *http.Cookie) {
	if fields := p.Validate(); len(fields) > 0 {
		return Result{Message: MsgInvalidInput, Fields: fields}, nil
	}

	user, err := a.store.GetUserByEmail(ctx, strings.TrimSpace(p.Email))
	if errors.Is(err, store.ErrNotFound) {
		return Result{Message: MsgUnknownUser}, nil
	}
	if err != nil {
		slog.Error("error logging in", "error", err)
		return Result{Message: MsgSignInFailed}, nil
	}

	identity, err := a.verifier.VerifyIDToken(ctx, p.IDToken)
	if err != nil {
		slog.Warn("error logging in", "uid", user.ID, "error", err)
		return Result{Message: MsgSignInFailed}, nil
	}
	if identity.UID != user.ID || (identity.Email != "" && !strings.EqualFold(identity.Email, user.Email)) {
		slog.Warn("error logging in: token subject mismatch", "uid", user.ID, "token_uid", identity.UID)
		return Result{Message: MsgSignInFailed}, nil
	}

	value, err := a.sessions.Issue(user.ID)
	if err != nil {
		slog.Error("error logging in", "uid", user.ID, "error", err)
		return Result{Message: MsgSignInFailed}, nil
	}
	return Result{Success: true, Message: MsgSignedIn}, a.sessions.Cookie(value)
}

// SignOut returns a cookie that clears the session.
func (a *Service) SignOut() *http.Cookie {
	return a.sessions.ClearCookie()
}

// CurrentUser resolves the session cookie to a stored user, or nil.
func (a *Service) CurrentUser(r *http.Request) *interview.User {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	uid, err := a.sessions.Verify(c.Value)
	if err != nil {
		slog.Debug("invalid session cookie", "error", err)
		return nil
	}
	user, err := a.store.GetUser(r.Context(), uid)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("error getting current user", "uid", uid, "error", err)
		}
		return nil
	}
	return user
}

// IsAuthenticated reports whether the request carries a valid session.
func (a *Service) IsAuthenticated(r *http.Request) bool {
	return a.CurrentUser(r) != nil
}

type ctxKey struct{}

// Require is middleware that rejects requests without a current user and
// stores the user in the request context.
func (a *Service) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := a.CurrentUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

// UserFrom returns the user stored by Require.
func UserFrom(ctx context.Context) *interview.User {
	u, _ := ctx.Value(ctxKey{}).(*interview.User)
	return u
}
