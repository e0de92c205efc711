package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, "dev", c.AppEnv)
	assert.Equal(t, "sms_suite", c.AppName)
	assert.Equal(t, ":8080", c.HttpListenAddr)
	assert.Equal(t, "smssuite:", c.RedisKeyPrefix)
	assert.Equal(t, "dispatch", c.QueueName)
	assert.Equal(t, 3, c.QueueMaxRetries)
	assert.Equal(t, 30*time.Second, c.QueueVisibilityTimeout)
	assert.Equal(t, 200*time.Millisecond, c.QueuePollInterval)
	assert.Equal(t, 50, c.WorkerCount)
	assert.Equal(t, "migrations", c.MigrationsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("QUEUE_MAX_RETRIES", "7")
	t.Setenv("QUEUE_VISIBILITY_TIMEOUT", "2m")

	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, "prod", c.AppEnv)
	assert.Equal(t, 7, c.QueueMaxRetries)
	assert.Equal(t, 2*time.Minute, c.QueueVisibilityTimeout)
}
