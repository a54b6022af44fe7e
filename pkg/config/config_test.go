package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.APIListen)
	assert.Equal(t, ":9090", cfg.LeaseListen)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadServerOverrides(t *testing.T) {
	path := writeConfig(t, `
dataDir: /tmp/corral-test
apiListen: ":18080"
redisAddr: "redis.internal:6379"
logLevel: debug
`)
	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/corral-test", cfg.DataDir)
	assert.Equal(t, ":18080", cfg.APIListen)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":9090", cfg.LeaseListen)
}

func TestLoadWorkerDefaults(t *testing.T) {
	cfg, err := LoadWorker("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Queue.PrefetchCount)
	assert.Equal(t, 5, cfg.Queue.MaxConcurrentCalls)
	assert.Equal(t, 5*time.Second, cfg.Queue.MaxWaitTime.Std())
	assert.Equal(t, 3, cfg.Queue.MaxDeliveryCount)
	assert.Equal(t, "gpt-4o", cfg.Agent.DefaultModel)
	assert.Equal(t, 0.7, cfg.Agent.DefaultTemperature)
	assert.Equal(t, 4000, cfg.Agent.MaxTokens)
	assert.Equal(t, 60, cfg.Agent.MaxDurationSeconds)
	assert.NotEmpty(t, cfg.NodeID, "falls back to hostname")
}

func TestLoadWorkerOverrides(t *testing.T) {
	path := writeConfig(t, `
nodeId: worker-7
slots: 12
metadata:
  region: us-east
queue:
  maxDeliveryCount: 5
  maxWaitTime: 2s
provider:
  provider: azure
  endpoint: https://foundry.example.com
  apiKeyEnv: TEST_FOUNDRY_KEY
`)
	cfg, err := LoadWorker(path)
	require.NoError(t, err)
	assert.Equal(t, "worker-7", cfg.NodeID)
	assert.Equal(t, 12, cfg.Slots)
	assert.Equal(t, "us-east", cfg.Metadata["region"])
	assert.Equal(t, 5, cfg.Queue.MaxDeliveryCount)
	assert.Equal(t, 2*time.Second, cfg.Queue.MaxWaitTime.Std())
	assert.Equal(t, "azure", cfg.Provider.Provider)

	t.Setenv("TEST_FOUNDRY_KEY", "sekret")
	assert.Equal(t, "sekret", cfg.Provider.APIKey())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
