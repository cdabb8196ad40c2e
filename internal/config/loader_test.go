package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("PIPELINE_AUTH_JWT_SECRET", "secret")
	t.Setenv("PIPELINE_BILLING_SANDBOX", "true")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, NotifyDirect, cfg.Notifications.Mode)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Threshold)
	assert.Equal(t, "Europe/Paris", cfg.Server.Timezone)
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("PIPELINE_AUTH_JWT_SECRET", "secret")
	path := writeYAML(t, `
server:
  port: "9090"
storage:
  driver: memory
billing:
  sandbox: true
sweep:
  interval: 30s
  threshold: 5m
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Threshold)
	// untouched sections keep their defaults
	assert.Equal(t, 587, cfg.Mail.Port)
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
billing:
  base_url: https://billing.example.com
`)
	t.Setenv("PIPELINE_SERVER_PORT", "7070")
	t.Setenv("PIPELINE_AUTH_JWT_SECRET", "from-env")
	t.Setenv("PIPELINE_POSTGRES_MAX_OPEN_CONNS", "3")
	t.Setenv("PIPELINE_ONBOARDING_LOGIN_URL_TEMPLATE", "https://{slug}.example.com")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 3, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, "https://billing.example.com", cfg.Billing.BaseURL)
	assert.Equal(t, "https://{slug}.example.com", cfg.Onboarding.LoginURLTemplate)
}

func TestLoadFromRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{
			name: "missing jwt secret",
			yaml: "billing:\n  sandbox: true\n",
		},
		{
			name: "unknown storage driver",
			yaml: "storage:\n  driver: mongo\nbilling:\n  sandbox: true\n",
			env:  map[string]string{"PIPELINE_AUTH_JWT_SECRET": "s"},
		},
		{
			name: "queue mode without broker",
			yaml: "notifications:\n  mode: queue\nbilling:\n  sandbox: true\n",
			env:  map[string]string{"PIPELINE_AUTH_JWT_SECRET": "s"},
		},
		{
			name: "unknown timezone",
			yaml: "server:\n  timezone: Mars/Olympus\nbilling:\n  sandbox: true\n",
			env:  map[string]string{"PIPELINE_AUTH_JWT_SECRET": "s"},
		},
		{
			name: "billing without url outside sandbox",
			yaml: "server:\n  port: \"8080\"\n",
			env:  map[string]string{"PIPELINE_AUTH_JWT_SECRET": "s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(writeYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromMalformedYAML(t *testing.T) {
	_, err := LoadFrom(writeYAML(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config yaml")
}
