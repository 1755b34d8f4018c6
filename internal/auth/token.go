package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed session.
const SessionCookieName = "session"

// SessionTTL is the lifetime of a session cookie.
const SessionTTL = 7 * 24 * time.Hour

// Identity is the verified subject of an identity provider token.
type Identity struct {
	UID   string
	Email string
}

// IdentityVerifier checks ID tokens minted by the hosted identity provider.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Identity, error)
}

type idClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 ID tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier. An empty issuer skips the issuer check.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// VerifyIDToken validates signature, expiry and issuer and returns the subject.
func (v *JWTVerifier) VerifyIDToken(_ context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims idClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("verify id token: missing subject")
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// Sessions issues and verifies session cookies.
type Sessions struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewSessions creates a session signer. secure marks cookies Secure.
func NewSessions(secret string, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), secure: secure, now: time.Now}
}

// Issue signs a session for uid.
func (s *Sessions) Issue(uid string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Verify returns the uid of a valid session value.
func (s *Sessions) Verify(value string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("verify session: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("verify session: missing subject")
	}
	return claims.Subject, nil
}

// Cookie wraps a session value in the session cookie.
func (s *Sessions) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie() *http.Cookie {
	c := s.Cookie("")
	c.MaxAge = -1
	return c
}
