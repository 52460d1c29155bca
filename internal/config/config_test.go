package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SMS_PROVIDER_URL", "http://provider.local/messages")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.Dispatch.Delay)
	require.Equal(t, 10*time.Second, cfg.Dispatch.SendTimeout)
	require.Equal(t, 24*time.Hour, cfg.Dispatch.Retention)
	require.Equal(t, 24*time.Hour, cfg.Alerts.Retention)
	require.Equal(t, "@every 1h", cfg.Alerts.SweepSchedule)
	require.Equal(t, "@every 5m", cfg.Alerts.RuleRefresh)
	require.Equal(t, "/api/v0", cfg.API.BasePath)
	require.Equal(t, "/admin/monitoring", cfg.API.MonitoringURL)
	require.Equal(t, 20, cfg.Telegram.RateLimit)
	require.Empty(t, cfg.Alerts.Emails)
}

func TestFromEnvMissingProvider(t *testing.T) {
	t.Setenv("SMS_PROVIDER_URL", "")

	_, err := FromEnv()
	require.ErrorContains(t, err, "SMS_PROVIDER_URL")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SMS_PROVIDER_URL", "http://provider.local/messages")
	t.Setenv("DISPATCH_DELAY", "250ms")
	t.Setenv("ALERT_EMAILS", " ops@example.com, ,oncall@example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.Dispatch.Delay)
	require.Equal(t, []string{"ops@example.com", "oncall@example.com"}, cfg.Alerts.Emails)
}

func TestFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("SMS_PROVIDER_URL", "http://provider.local/messages")
	t.Setenv("BATCH_RETENTION", "a day")

	_, err := FromEnv()
	require.ErrorContains(t, err, "BATCH_RETENTION")
}
