package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTuningFile(t, "max_unit_cost: 4096\nsplit_threshold: 16\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.MaxUnitCost)
	require.Equal(t, 16, cfg.SplitThreshold)
}

func TestLoadConfigOmittedKeysKeepDefaults(t *testing.T) {
	path := writeTuningFile(t, "max_unit_cost: 4096\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.MaxUnitCost)
	require.Zero(t, cfg.SplitThreshold)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeTuningFile(t, "max_unit_cost: [not an int\n")
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "parse config")
}
