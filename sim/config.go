package sim

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the engine's enumerated configuration surface (spec §6,
// "Configuration (enumerated)"). Loaded via LoadConfig with a YAML file layered
// under environment-variable overrides, mirroring the
// flyingrobots-go-redis-work-queue config package's viper precedence chain.
type Config struct {
	SimulationDate      string  `mapstructure:"simulation_date"`
	SimulationStartTime string  `mapstructure:"simulation_start_time"`
	SimulationEndTime   string  `mapstructure:"simulation_end_time"`
	DurationSeconds     float64 `mapstructure:"duration_seconds"`

	StationsSource            string `mapstructure:"stations_source"`
	TravelTimeTensorSource    string `mapstructure:"travel_time_tensor_source"`
	TravelTimeMetadataSource  string `mapstructure:"travel_time_metadata_source"`
	BusScheduleSource         string `mapstructure:"bus_schedule_source"`

	BusCapacity int `mapstructure:"bus_capacity"`

	EnableMinibus           bool     `mapstructure:"enable_minibus"`
	NumMinibuses            int      `mapstructure:"num_minibuses"`
	MinibusCapacity         int      `mapstructure:"minibus_capacity"`
	MinibusInitialLocations []string `mapstructure:"minibus_initial_locations"` // ids, or ["random"]

	OptimizerKind         string  `mapstructure:"optimizer_kind"` // none | greedy_insertion | external
	OptimizationInterval  float64 `mapstructure:"optimization_interval"`
	MaxWaitingTime        float64 `mapstructure:"max_waiting_time"`
	MaxDetourTime         float64 `mapstructure:"max_detour_time"`

	RandomSeed int64 `mapstructure:"random_seed"`

	PassengerSourceKind   string `mapstructure:"passenger_source_kind"` // od_matrix | explicit_list
	PassengerListSource   string `mapstructure:"passenger_list_source"`
	OutputDir             string `mapstructure:"output_dir"`

	ExternalOptimizerCommand string  `mapstructure:"external_optimizer_command"`
	ExternalOptimizerTimeout float64 `mapstructure:"external_optimizer_timeout_seconds"`

	StrictTensorValidation bool `mapstructure:"strict_tensor_validation"`
	TravelTimeCacheSize    int  `mapstructure:"travel_time_cache_size"`

	LogLevel string `mapstructure:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		BusCapacity:              40,
		EnableMinibus:            false,
		NumMinibuses:             0,
		MinibusCapacity:          4,
		MinibusInitialLocations:  []string{"random"},
		OptimizerKind:            "none",
		OptimizationInterval:     60,
		MaxWaitingTime:           600,
		MaxDetourTime:            0,
		RandomSeed:               1,
		PassengerSourceKind:      "explicit_list",
		OutputDir:                "./output",
		ExternalOptimizerTimeout: 5,
		StrictTensorValidation:   false,
		TravelTimeCacheSize:      256,
		LogLevel:                 "info",
	}
}

// LoadConfig reads configuration from a YAML file, layered under
// environment-variable overrides (TRANSIT_SIM_<KEY>, "." replaced with "_"),
// per SPEC_FULL.md §2's ambient-stack description. A missing file is not an
// error — defaults apply, env overrides still take effect (useful for
// gen-fixtures round-tripping and tests).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRANSIT_SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("bus_capacity", def.BusCapacity)
	v.SetDefault("enable_minibus", def.EnableMinibus)
	v.SetDefault("num_minibuses", def.NumMinibuses)
	v.SetDefault("minibus_capacity", def.MinibusCapacity)
	v.SetDefault("minibus_initial_locations", def.MinibusInitialLocations)
	v.SetDefault("optimizer_kind", def.OptimizerKind)
	v.SetDefault("optimization_interval", def.OptimizationInterval)
	v.SetDefault("max_waiting_time", def.MaxWaitingTime)
	v.SetDefault("max_detour_time", def.MaxDetourTime)
	v.SetDefault("random_seed", def.RandomSeed)
	v.SetDefault("passenger_source_kind", def.PassengerSourceKind)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("external_optimizer_timeout_seconds", def.ExternalOptimizerTimeout)
	v.SetDefault("strict_tensor_validation", def.StrictTensorValidation)
	v.SetDefault("travel_time_cache_size", def.TravelTimeCacheSize)
	v.SetDefault("log_level", def.LogLevel)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks cross-field constraints spec.md leaves implicit in
// its enumeration (positive capacities, a recognized optimizer_kind, a
// positive optimization cadence whenever minibuses are enabled).
func ValidateConfig(cfg *Config) error {
	if cfg.BusCapacity <= 0 {
		return &ConfigError{Key: "bus_capacity", Reason: "must be positive"}
	}
	switch cfg.OptimizerKind {
	case "none", "greedy_insertion", "external":
	default:
		return &ConfigError{Key: "optimizer_kind", Reason: "must be one of none, greedy_insertion, external"}
	}
	if cfg.EnableMinibus {
		if cfg.NumMinibuses <= 0 {
			return &ConfigError{Key: "num_minibuses", Reason: "must be positive when enable_minibus is set"}
		}
		if cfg.MinibusCapacity <= 0 {
			return &ConfigError{Key: "minibus_capacity", Reason: "must be positive"}
		}
		if cfg.OptimizationInterval <= 0 {
			return &ConfigError{Key: "optimization_interval", Reason: "must be positive when enable_minibus is set"}
		}
		isRandom := len(cfg.MinibusInitialLocations) == 1 && cfg.MinibusInitialLocations[0] == "random"
		if !isRandom && len(cfg.MinibusInitialLocations) != cfg.NumMinibuses {
			return &ConfigError{Key: "minibus_initial_locations", Reason: "must be \"random\" or have exactly one entry per minibus"}
		}
	}
	if cfg.MaxWaitingTime <= 0 {
		return &ConfigError{Key: "max_waiting_time", Reason: "must be positive"}
	}
	if cfg.DurationSeconds < 0 {
		return &ConfigError{Key: "duration_seconds", Reason: "must be non-negative"}
	}
	return nil
}
