package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestGenerateTokenIsUnique(t *testing.T) {
	first, err := GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)
	second, err := GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	claims, err := ParseToken(second)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(7, "alice", -time.Minute)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	noUser, err := GenerateToken(0, "nobody", time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "Garbage", token: "not-a-token"},
		{name: "Expired", token: expired},
		{name: "WrongSecret", token: foreign},
		{name: "NoUser", token: noUser},
		{name: "NoneAlgorithm", token: unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, time.Hour, TokenTTL())
}
