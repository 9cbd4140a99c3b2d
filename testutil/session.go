package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/wayfarergame/wayfarer/rpc"
)

// SignSessionToken produces a Nakama-shaped session JWT for tests.
func SignSessionToken(t *testing.T, userID, username string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"usn": username,
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err, "SignSessionToken")
	return signed
}

// NewSession returns a valid-for-an-hour restored session.
func NewSession(t *testing.T) *rpc.Session {
	t.Helper()
	token := SignSessionToken(t, "user-1", "wayfarer", time.Now().Add(time.Hour))
	s, err := rpc.RestoreSession(token, "")
	require.NoError(t, err, "NewSession: RestoreSession")
	return s
}
