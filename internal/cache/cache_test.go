package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/config"
)

func TestRedisTokenCache_GetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Hit", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewRedisTokenCache(db, time.Hour)
		mock.ExpectGet("pseudonym:abc").SetVal("ANON-12345678")

		token, found, err := c.GetToken(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "ANON-12345678", token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewRedisTokenCache(db, time.Hour)
		mock.ExpectGet("pseudonym:abc").RedisNil()

		token, found, err := c.GetToken(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewRedisTokenCache(db, time.Hour)
		mock.ExpectGet("pseudonym:abc").SetErr(errors.New("connection refused"))

		_, found, err := c.GetToken(ctx, "abc")
		assert.Error(t, err)
		assert.False(t, found)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestRedisTokenCache_SetToken(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisTokenCache(db, 30*time.Minute)

	mock.ExpectSet("pseudonym:abc", "ANON-12345678", 30*time.Minute).SetVal("OK")
	require.NoError(t, c.SetToken(ctx, "abc", "ANON-12345678"))

	mock.ExpectSet("pseudonym:def", "ANON-87654321", 30*time.Minute).SetErr(errors.New("readonly"))
	assert.Error(t, c.SetToken(ctx, "def", "ANON-87654321"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFromConfig_Disabled(t *testing.T) {
	c, closeFn, err := FromConfig(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, c.SetToken(context.Background(), "abc", "ANON-1"))
	_, found, err := c.GetToken(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, found)
}
