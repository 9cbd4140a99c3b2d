package rpc

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims mirrors the claims Nakama embeds in its session tokens.
type sessionClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"usn"`
	jwt.RegisteredClaims
}

// Session is an authenticated Nakama session. It is an explicit value the
// caller owns and passes into every Gateway call; there is no ambient
// global session. Create one with Client.AuthenticateDevice,
// Client.AuthenticateEmail, or RestoreSession.
type Session struct {
	token        string
	refreshToken string
	userID       string
	username     string
	expiresAt    time.Time
}

// RestoreSession rebuilds a Session from a previously issued token pair.
// The token signature is not verified locally (the server holds the key);
// only the claims are read so the client can expose identity and expiry.
func RestoreSession(token, refreshToken string) (*Session, error) {
	if token == "" {
		return nil, errors.New("rpc: empty session token")
	}
	claims := &sessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	s := &Session{
		token:        token,
		refreshToken: refreshToken,
		userID:       claims.UserID,
		username:     claims.Username,
	}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Token returns the bearer token sent on every RPC call.
func (s *Session) Token() string { return s.token }

// RefreshToken returns the refresh token, if the server issued one.
func (s *Session) RefreshToken() string { return s.refreshToken }

// UserID returns the authenticated user's ID.
func (s *Session) UserID() string { return s.userID }

// Username returns the authenticated user's handle.
func (s *Session) Username() string { return s.username }

// ExpiresAt returns the token expiry. Zero when the token carries no exp claim.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Expired reports whether the token has expired as of now.
// The check is advisory; the server remains the authority.
func (s *Session) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}
