package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/config"
)

func TestDefaults_PassValidation(t *testing.T) {
	cfg := config.Defaults()
	require.NoError(t, config.Validate(&cfg))
}

func TestValidate_RejectsBadSparsityDensity(t *testing.T) {
	cfg := config.Defaults()
	cfg.CfC.SparsityDensity = 1.5
	err := config.Validate(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sparsity_density")
}

func TestValidate_RejectsFederationEnabledWithoutHubAddr(t *testing.T) {
	cfg := config.Defaults()
	cfg.Federation.Enabled = true
	err := config.Validate(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "hub_addr")
}

func TestValidate_RejectsLightweightModeWithFederation(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agent.LightweightMode = true
	cfg.Federation.Enabled = true
	cfg.Federation.HubAddr = "hub.rig.internal:9443"
	cfg.Federation.TLSCertFile = "/etc/sairen/tls.crt"
	cfg.Federation.TLSKeyFile = "/etc/sairen/tls.key"
	cfg.Federation.TLSCAFile = "/etc/sairen/ca.crt"
	err := config.Validate(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "lightweight_mode")
}

func TestLoad_ReadsYAMLOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_version: "1"
node_id: rig-42
tactical:
  flow_balance_high: 8
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "rig-42", cfg.NodeID)
	require.Equal(t, 8.0, cfg.Tactical.FlowBalanceHigh)
	require.Equal(t, 20.0, cfg.Tactical.FlowBalanceCritical)
}

func TestAtomicConfig_ReloadSwapsOnValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_version: "1"
node_id: rig-a
`), 0o644))

	ac := config.NewAtomicConfig(config.Defaults())
	require.NoError(t, ac.Reload(path))
	require.Equal(t, "rig-a", ac.Load().NodeID)
}

func TestAtomicConfig_ReloadKeepsOldConfigOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_version: "2"
`), 0o644))

	initial := config.Defaults()
	initial.NodeID = "rig-keep"
	ac := config.NewAtomicConfig(initial)

	err := ac.Reload(path)
	require.Error(t, err)
	require.Equal(t, "rig-keep", ac.Load().NodeID)
}
