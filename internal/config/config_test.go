package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.Addr)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "tally", cfg.Database.Schema)
	assert.Equal(t, StopPrevious, cfg.Timer.OnActive)
	assert.False(t, cfg.Insights.Enabled)
	assert.Equal(t, "gemini-2.5-flash", cfg.Insights.Model)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := `
db:
  host: db.internal
  port: 6543
timer:
  onactive: reject
telemetry:
  enabled: true
  endpoint: collector:4317
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TALLY_DB_USER", "from_env")
	t.Setenv("TALLY_INSIGHTS_PROJECT", "my-gcp-project")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "from_env", cfg.Database.User)
	assert.Equal(t, RejectStart, cfg.Timer.OnActive)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "my-gcp-project", cfg.Insights.Project)
}

func TestLoad_UnknownTimerPolicyFallsBack(t *testing.T) {
	t.Setenv("TALLY_TIMER_ONACTIVE", "parallel")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, StopPrevious, cfg.Timer.OnActive)
}
