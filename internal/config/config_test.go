package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{"TICKET_CATEGORY_ID", "LOGS_CHANNEL_ID", "ORDER_API_URL", "ORDER_HEALTH_URL", "OPS_PORT", "DATA_DIR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, UnsetTicketCategory, cfg.Channels.TicketCategory)
	assert.Equal(t, UnsetLogsChannel, cfg.Channels.Logs)
	assert.False(t, IsSet(cfg.Channels.TicketCategory))
	assert.Empty(t, cfg.Orders.BaseURL)
	assert.Empty(t, cfg.Orders.HealthURL)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "127.0.0.1:8081", cfg.App.Addr())
	assert.Equal(t, 5*time.Second, cfg.Tickets.CloseDelay())
	assert.Equal(t, 10*time.Second, cfg.Orders.Timeout())
	assert.Equal(t, 5*time.Minute, cfg.Orders.HealthInterval())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfigFile(t, `
channels:
  ticketCategory: "111"
  transcript: SET_TRANSCRIPT_CHANNEL_ID
  logs: "222"
roles:
  rulesAccepted: "333"
api:
  orderEndpoint: https://shop.example.com/api/
messages:
  serverName: Test Server
  rulesTitle: Rules
rules:
  - Be kind
  - No spam
`)
	t.Setenv("BOT_CONFIG_FILE", path)
	t.Setenv("LOGS_CHANNEL_ID", "999")
	t.Setenv("ORDER_API_URL", "")
	t.Setenv("ORDER_HEALTH_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "111", cfg.Channels.TicketCategory)
	assert.Equal(t, "999", cfg.Channels.Logs, "env wins over file")
	assert.False(t, IsSet(cfg.Channels.Transcript))
	assert.Equal(t, "333", cfg.Roles.RulesAccepted)
	assert.Equal(t, "https://shop.example.com/api", cfg.Orders.BaseURL)
	assert.Equal(t, "https://shop.example.com/api/health", cfg.Orders.HealthURL)
	assert.Equal(t, "Test Server", cfg.Messages.ServerName)
	assert.Equal(t, "Rules", cfg.Messages.RulesTitle)
	assert.Equal(t, "Click the button below to accept the rules", cfg.Messages.RulesFooter)
	assert.Equal(t, []string{"Be kind", "No spam"}, cfg.Rules)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOT_CONFIG_FILE", writeConfigFile(t, "channels: [unterminated"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestIsSet(t *testing.T) {
	cases := map[string]bool{
		"":                       false,
		"   ":                    false,
		UnsetTicketCategory:      false,
		UnsetLogsChannel:         false,
		"SET_ANYTHING_ELSE":      false,
		"123456789012345678":     true,
		"  123456789012345678  ": true,
	}
	for id, want := range cases {
		assert.Equal(t, want, IsSet(id), "IsSet(%q)", id)
	}
}

func TestOpsServerToggle(t *testing.T) {
	assert.True(t, AppConfig{Port: "8081"}.Enabled())
	assert.False(t, AppConfig{Port: "0"}.Enabled())
	assert.False(t, AppConfig{}.Enabled())
}

func TestCacheTTLDisabledByZero(t *testing.T) {
	assert.Zero(t, OrdersConfig{}.CacheTTL())
	assert.Equal(t, 30*time.Second, OrdersConfig{CacheTTLSeconds: 30}.CacheTTL())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
