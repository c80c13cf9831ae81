package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachai/internal/gateway"
)

func TestLoadGatewaySettings(t *testing.T) {
	t.Setenv("GATEWAY_TIMEOUT", "15s")
	t.Setenv("GATEWAY_REQUESTS_PER_MINUTE", "90")

	cfg, err := Load()
	require.NoError(t, err)

	gatewayCfg := gateway.Config{
		Timeout:           cfg.Gateway.Timeout,
		RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
	}
	assert.Equal(t, 15*time.Second, gatewayCfg.Timeout)
	assert.Equal(t, 90, gatewayCfg.RequestsPerMinute)
}

func TestLoadAppDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "")
	t.Setenv("HEALTHMATE_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "healthmate-coachai", cfg.App.Name)
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
}
