package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Setting environment variables.
func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		err := os.Setenv(key, value)
		require.NoError(t, err, "failed to set env var %s", key)

		// Ensure that the env vars are cleared after the test
		t.Cleanup(func() {
			os.Unsetenv(key)
		})
	}
}

func TestConfigModerationDefaults(t *testing.T) {
	actual, err := MustLoadConfig()
	require.NoError(t, err)
	require.NotNil(t, actual)

	// Canonical policy defaults
	require.Equal(t, 30, actual.Moderation.ModeratorSuspensionCapDays)
	require.Equal(t, 365, actual.Moderation.AdminSuspensionCapDays)
	require.Equal(t, 20, actual.Moderation.ActionReasonMinLength)
	require.Equal(t, 100, actual.Moderation.BanReasonMinLength)
	require.Equal(t, 50, actual.Moderation.AppealMinLength)
	require.Equal(t, 50, actual.Moderation.AuditPageLimit)
	require.Equal(t, 5*time.Second, actual.Database.Timeout)
}

func TestConfigModerationEnv(t *testing.T) {
	setEnvVars(t, map[string]string{
		"MODERATOR_SUSPENSION_CAP_DAYS": "14",
		"ADMIN_SUSPENSION_CAP_DAYS":     "180",
		"ACTION_REASON_MIN_LENGTH":      "10",
		"BAN_REASON_MIN_LENGTH":         "200",
		"AUDIT_PAGE_LIMIT":              "25",
		"DATABASE_DRIVER":               "sqlite3",
		"DATABASE_CONNECTION":           ":memory:",
		"DATABASE_TIMEOUT":              "2s",
	})

	actual, err := MustLoadConfig()
	require.NoError(t, err)
	require.NotNil(t, actual)

	require.Equal(t, 14, actual.Moderation.ModeratorSuspensionCapDays)
	require.Equal(t, 180, actual.Moderation.AdminSuspensionCapDays)
	require.Equal(t, 10, actual.Moderation.ActionReasonMinLength)
	require.Equal(t, 200, actual.Moderation.BanReasonMinLength)
	require.Equal(t, 25, actual.Moderation.AuditPageLimit)
	require.Equal(t, "sqlite3", actual.Database.Driver)
	require.Equal(t, ":memory:", actual.Database.Connection)
	require.Equal(t, 2*time.Second, actual.Database.Timeout)
}

func TestConfigSeverityOverridesEnv(t *testing.T) {
	setEnvVars(t, map[string]string{
		"SEVERITY_OVERRIDES": "spam:high,other:medium",
	})

	actual, err := MustLoadConfig()
	require.NoError(t, err)
	require.NotNil(t, actual)

	require.Equal(t, map[string]string{"spam": "high", "other": "medium"}, actual.Moderation.SeverityOverrides)
}

func TestConfigAPIEnv(t *testing.T) {
	setEnvVars(t, map[string]string{
		"API_HOST":    "0.0.0.0",
		"API_PORT":    "9090",
		"API_TIMEOUT": "45s",
	})

	actual, err := MustLoadConfig()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", actual.API.Host)
	require.Equal(t, 9090, actual.API.Port)
	require.Equal(t, 45*time.Second, actual.API.Timeout)
}
