package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/postboard/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.RWMutex
)

// InitRedis connects to the configured Redis server. Without a host the stores fall back
// to process memory.
func InitRedis(cfg config.AppConfig) error {
	if cfg.RedisHost == "" {
		Sugar.Info("redis not configured, using in-memory token and state stores")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	SetRedis(client)
	return nil
}

// SetRedis installs client as the shared Redis client; nil restores the memory fallback.
func SetRedis(client *redis.Client) {
	redisMu.Lock()
	redisClient = client
	redisMu.Unlock()
}

// GetRedis returns the shared client or nil when Redis is not in use.
func GetRedis() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}
