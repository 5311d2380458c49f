package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto/pkg/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	require.ErrorIs(t, err, redis.ErrNoURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://not-redis"})
	require.ErrorIs(t, err, redis.ErrInvalidURL)
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, redis.Config{}.Enabled())
	assert.True(t, redis.Config{ConnectionURL: "redis://localhost:6379/0"}.Enabled())
}
