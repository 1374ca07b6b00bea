package server

import (
	"path/filepath"
	"testing"

	"energyadmin/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemWiresLogger(t *testing.T) {
	conf, err := config.ReadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	conf.Simulation.Instant = true

	sys, err := NewSystem(conf)
	require.NoError(t, err)
	defer sys.Close()

	require.NotNil(t, sys.logger)
	assert.Same(t, sys.logger, sys.hub.logger, "feed logs through the system logger")
	assert.Same(t, sys.hub, sys.server.hub)
	assert.Zero(t, NewPolicy(conf).Delay())
}
