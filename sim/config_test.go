package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, 40, cfg.BusCapacity)
	require.Equal(t, "none", cfg.OptimizerKind)
	require.Equal(t, []string{"random"}, cfg.MinibusInitialLocations)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus_capacity: 20
enable_minibus: true
num_minibuses: 3
minibus_capacity: 6
minibus_initial_locations: ["A", "B", "C"]
optimizer_kind: greedy_insertion
optimization_interval: 30
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.BusCapacity)
	require.True(t, cfg.EnableMinibus)
	require.Equal(t, 3, cfg.NumMinibuses)
	require.Equal(t, "greedy_insertion", cfg.OptimizerKind)
	require.Equal(t, []string{"A", "B", "C"}, cfg.MinibusInitialLocations)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus_capacity: 20\n"), 0o644))

	t.Setenv("TRANSIT_SIM_BUS_CAPACITY", "99")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 99, cfg.BusCapacity)
}

func TestValidateConfig_RejectsUnknownOptimizerKind(t *testing.T) {
	cfg := defaultConfig()
	cfg.OptimizerKind = "bogus"
	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateConfig_RejectsNonPositiveBusCapacity(t *testing.T) {
	cfg := defaultConfig()
	cfg.BusCapacity = 0
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfig_MinibusLocationsMustMatchCountUnlessRandom(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnableMinibus = true
	cfg.NumMinibuses = 3
	cfg.MinibusCapacity = 4
	cfg.OptimizationInterval = 60
	cfg.MinibusInitialLocations = []string{"A"} // neither "random" nor length 3
	require.Error(t, ValidateConfig(cfg))

	cfg.MinibusInitialLocations = []string{"A", "B", "C"}
	require.NoError(t, ValidateConfig(cfg))

	cfg.MinibusInitialLocations = []string{"random"}
	require.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfig_RejectsMinibusEnabledWithoutCount(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnableMinibus = true
	cfg.NumMinibuses = 0
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfig_RejectsNegativeDuration(t *testing.T) {
	cfg := defaultConfig()
	cfg.DurationSeconds = -1
	require.Error(t, ValidateConfig(cfg))
}
