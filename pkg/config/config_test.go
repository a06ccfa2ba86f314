package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "we", cfg.Naming.Env)
	assert.Equal(t, "Schuecal", cfg.Naming.DesktopNameBase)
	assert.Equal(t, "-DAG", cfg.Naming.AppGroupSuffix)
	assert.Equal(t, time.Hour, cfg.Rollout.PropagationDelay)
	assert.Equal(t, 5*time.Minute, cfg.Rollout.Warmup)
	assert.Equal(t, 1, cfg.Rollout.Parallelism)
	assert.False(t, cfg.Rollout.PollReadiness)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avdroll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
azure:
  tenant_id: tenant
  subscription_id: sub
  resource_group: rg-avd-we
repository:
  images_path: /mnt/images/latest
  template_path: /mnt/images/hostpool.template.json
  parameters_path: /mnt/images/hostpool.parameters.json
naming:
  env: de
  desktop_name_base: Schuecal
rollout:
  propagation_delay: 30m
  warmup: 120s
  parallelism: 4
  poll_readiness: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tenant", cfg.Azure.TenantID)
	assert.Equal(t, "rg-avd-we", cfg.Azure.ResourceGroup)
	assert.Equal(t, "/mnt/images/latest", cfg.Repository.ImagesPath)
	assert.Equal(t, "de", cfg.Naming.Env)
	assert.Equal(t, 30*time.Minute, cfg.Rollout.PropagationDelay)
	assert.Equal(t, 2*time.Minute, cfg.Rollout.Warmup)
	assert.Equal(t, 4, cfg.Rollout.Parallelism)
	assert.True(t, cfg.Rollout.PollReadiness)

	// Unset values keep their defaults.
	assert.Equal(t, "-DAG", cfg.Naming.AppGroupSuffix)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avdroll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
azure:
  client_secret: from-file
naming:
  env: we
`), 0o644))

	t.Setenv("AVDROLL_AZURE_CLIENT_SECRET", "from-env")
	t.Setenv("AVDROLL_NAMING_ENV", "uk")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Azure.ClientSecret)
	assert.Equal(t, "uk", cfg.Naming.Env)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
