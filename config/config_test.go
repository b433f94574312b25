package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "")

	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 72, c.TokenTTLHours)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "/media", c.MediaURL)
	assert.Equal(t, 60, c.AssetGraceMinutes)
	assert.True(t, c.MetricsEnabled)
}

func TestLoadFrom_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom(writeConfig(t, `{"app": {"port": "9000"}}`))
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadFrom_FileAndEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_USERNAMES", "root, Alice ,,")
	t.Setenv("APP_PORT", "7000")

	path := writeConfig(t, `{
		"app": {"port": "9000", "jwt_secret": "from-file", "allowed_origins": ["https://a.example", "https://b.example"]},
		"database": {"driver": "SQLite", "path": "board.db"},
		"media": {"grace_minutes": 5}
	}`)
	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, "7000", c.AppPort, "environment wins over the file")
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "board.db", c.DBPath)
	assert.Equal(t, 5, c.AssetGraceMinutes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, []string{"root", "Alice"}, c.AdminUsernames)
}

func TestLoadFrom_BadFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := LoadFrom(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	c := AppConfig{AdminUsernames: []string{"root", " Alice "}}

	tests := []struct {
		username string
		want     bool
	}{
		{"root", true},
		{"ROOT", true},
		{"alice", true},
		{"bob", false},
		{"", false},
		{"  ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsAdmin(tt.username), "IsAdmin(%q)", tt.username)
	}
}
