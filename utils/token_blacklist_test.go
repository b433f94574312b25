package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(client)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = client.Close()
	})
	return mr
}

func TestBlacklistToken_Memory(t *testing.T) {
	SetRedis(nil)

	BlacklistToken("mem-token", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("mem-token"))
	assert.False(t, IsTokenBlacklisted("other-token"))

	BlacklistToken("already-expired", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("already-expired"))
}

func TestBlacklistToken_Redis(t *testing.T) {
	mr := withMiniredis(t)

	BlacklistToken("redis-token", time.Now().Add(time.Hour))
	assert.True(t, mr.Exists(blacklistPrefix+"redis-token"))
	assert.True(t, IsTokenBlacklisted("redis-token"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, IsTokenBlacklisted("redis-token"))
}

func TestOAuthState(t *testing.T) {
	tests := []struct {
		name  string
		redis bool
	}{
		{name: "Memory"},
		{name: "Redis", redis: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.redis {
				withMiniredis(t)
			} else {
				SetRedis(nil)
			}
			SaveState("state-"+tt.name, time.Minute)
			assert.True(t, ConsumeState("state-"+tt.name))
			assert.False(t, ConsumeState("state-"+tt.name), "state accepted twice")
			assert.False(t, ConsumeState("unknown"))
			assert.False(t, ConsumeState(""))
		})
	}
}
