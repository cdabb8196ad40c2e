package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

func memoryLoader() (*config.Config, error) {
	cfg := config.Defaults()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Billing.Sandbox = true
	cfg.Auth.JWTSecret = "cli-secret"
	cfg.Logging.Level = "error"
	return &cfg, nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(memoryLoader)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--operator", "op-12")
	require.NoError(t, err)

	cfg, _ := memoryLoader()
	id, err := middleware.ParseToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "op-12", id)
}

func TestTokenCommandRequiresOperator(t *testing.T) {
	_, err := execute(t, "token")
	assert.Error(t, err)
}

func TestConversionsStuckWithNothingStuck(t *testing.T) {
	out, err := execute(t, "conversions", "stuck")
	require.NoError(t, err)
	assert.Equal(t, "no stuck conversions\n", out)
}

func TestConversionsResumeUnknownIntent(t *testing.T) {
	_, err := execute(t, "conversions", "resume", "missing-intent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMigrateNeedsPostgres(t *testing.T) {
	_, err := execute(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestConversionsAbandonUnknownIntent(t *testing.T) {
	_, err := execute(t, "conversions", "abandon", "missing-intent", "--operator", "op-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "conversions", "abandon")
	assert.Error(t, err, "intent id is required")
}
