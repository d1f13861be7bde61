package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanEnv blanks every key a test depends on so the host environment cannot leak in.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_PATH", "ALLOWED_IPS", "PROXY_HEADER", "TRUSTED_PROXIES", "DISPATCH_MODE", "NATS_URL", "PORT"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedIPs)
	assert.Equal(t, DispatchDeferred, cfg.DispatchMode)
	assert.Equal(t, "generated", cfg.OutputDir)
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadAllowedIPs(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ALLOWED_IPS", " 10.0.0.1, ,192.168.1.5 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "192.168.1.5"}, cfg.AllowedIPs)
}

func TestLoadProxyHeaderRequiresTrustedProxies(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PROXY_HEADER", "X-Forwarded-For")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.254, 172.16.0.0/12")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.254", "172.16.0.0/12"}, cfg.TrustedProxies)
}

func TestLoadQueueModeRequiresNATS(t *testing.T) {
	cleanEnv(t)
	t.Setenv("DISPATCH_MODE", "queue")

	_, err := Load()
	assert.Error(t, err, "queue mode without NATS_URL")
}

func TestLoadRejectsUnknownDispatchMode(t *testing.T) {
	cleanEnv(t)
	t.Setenv("DISPATCH_MODE", "later")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
app:
  port: "9090"
access:
  allowed_ips: ["127.0.0.1"]
  proxy_header: X-Forwarded-For
  trusted_proxies: ["10.0.0.254"]
dispatch:
  mode: sync
delivery:
  timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "7070")
	os.Unsetenv("ALLOWED_IPS")
	os.Unsetenv("TRUSTED_PROXIES")
	os.Unsetenv("PROXY_HEADER")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "env should override file port")
	assert.Equal(t, DispatchSync, cfg.DispatchMode)
	assert.Equal(t, 5*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.AllowedIPs)
	assert.Equal(t, "X-Forwarded-For", cfg.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.254"}, cfg.TrustedProxies)
}
