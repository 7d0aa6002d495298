package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClient connects to the redis at host:port and pings it.
// An empty host falls back to REDIS_HOST, then localhost. The client is closed on test cleanup.
func GetRedisClient(t *testing.T, host, port, password string) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if host == "" {
		host = os.Getenv("REDIS_HOST")
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	t.Logf("using redis: [%s:%s]", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: password,
		DB:       0, // use default DB
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	return rdb
}
