package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigDefaults(t *testing.T) {
	conf, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", conf.Listen.Port)
	assert.Equal(t, 200*time.Millisecond, conf.Simulation.MinDelay)
	assert.Equal(t, 700*time.Millisecond, conf.Simulation.MaxDelay)
	assert.Equal(t, 0.05, conf.Simulation.FailureRate)
	assert.Equal(t, AssignPessimistic, conf.Admin.AssignPolicy)
	assert.False(t, conf.Mongo.Enabled)
	assert.Equal(t, "UTC", conf.TimeZone)
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `
is_debug: true
listen:
  port: "8080"
simulation:
  instant: true
  min_delay: 50ms
  failure_rate: 0.5
admin:
  assign_policy: optimistic
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	conf, err := ReadConfig(path)
	require.NoError(t, err)
	assert.True(t, conf.IsDebug)
	assert.Equal(t, "8080", conf.Listen.Port)
	assert.True(t, conf.Simulation.Instant)
	assert.Equal(t, 50*time.Millisecond, conf.Simulation.MinDelay)
	assert.Equal(t, 700*time.Millisecond, conf.Simulation.MaxDelay)
	assert.Equal(t, 0.5, conf.Simulation.FailureRate)
	assert.Equal(t, AssignOptimistic, conf.Admin.AssignPolicy)
}

func TestReadConfigEnvOverride(t *testing.T) {
	t.Setenv("SIM_FAILURE_RATE", "1")
	t.Setenv("LISTEN_PORT", "7000")

	conf, err := ReadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1.0, conf.Simulation.FailureRate)
	assert.Equal(t, "7000", conf.Listen.Port)
}

func TestReadConfigRejectsUnknownAssignPolicy(t *testing.T) {
	t.Setenv("ADMIN_ASSIGN_POLICY", "eventual")
	_, err := ReadConfig("")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENERGYADMIN_TEST_VALUE=42\n"), 0o600))
	t.Setenv("ENERGYADMIN_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("ENERGYADMIN_TEST_VALUE"))
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "42", os.Getenv("ENERGYADMIN_TEST_VALUE"))
}
