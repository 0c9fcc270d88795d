package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 4, cfg.ConnectPolicy.MaxAttempts)
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "127.0.0.1",
		Port:          1,
		DialTimeout:   200 * time.Millisecond,
		ConnectPolicy: retry.Immediate(1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, cfg)
	assert.Error(t, err)
}

func TestIncrWithTTL_FirstHitSetsExpiry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectIncr("rl:scanner-1").SetVal(1)
	mock.ExpectExpire("rl:scanner-1", time.Minute).SetVal(true)

	n, err := c.IncrWithTTL(context.Background(), "rl:scanner-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrWithTTL_LaterHitsSkipExpiry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectIncr("rl:scanner-1").SetVal(7)

	n, err := c.IncrWithTTL(context.Background(), "rl:scanner-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrWithTTL_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectIncr("rl:x").SetErr(errors.New("connection refused"))

	_, err := c.IncrWithTTL(context.Background(), "rl:x", time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type cachedThing struct {
	Title string `json:"title"`
}

func TestSetJSONGetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)
	ctx := context.Background()

	mock.ExpectSet("parent:event:e1", `{"title":"Gig"}`, time.Minute).SetVal("OK")
	require.NoError(t, c.SetJSON(ctx, "parent:event:e1", cachedThing{Title: "Gig"}, time.Minute))

	mock.ExpectGet("parent:event:e1").SetVal(`{"title":"Gig"}`)
	var got cachedThing
	require.NoError(t, c.GetJSON(ctx, "parent:event:e1", &got))
	assert.Equal(t, "Gig", got.Title)

	mock.ExpectGet("parent:event:missing").RedisNil()
	err := c.GetJSON(ctx, "parent:event:missing", &got)
	assert.ErrorIs(t, err, Nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, c.HealthCheck(context.Background()))

	mock.ExpectPing().SetErr(errors.New("down"))
	err := c.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
}

// Integration test against a real Redis (set TEST_REDIS_HOST to run)
func TestIncrWithTTL_Integration(t *testing.T) {
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}

	cfg := DefaultConfig()
	cfg.Host = host
	cfg.ConnectPolicy = retry.Immediate(1)

	ctx := context.Background()
	c, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	key := "test:rl:" + time.Now().Format(time.RFC3339Nano)
	defer c.Del(ctx, key)

	for i := 1; i <= 3; i++ {
		n, err := c.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	ttl, err := c.Client().TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
