// cmd/root.go
package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/jingren-tang/transit-sim/sim"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "transit-sim",
	Short: "Discrete-event simulator for a mixed-mode bus and minibus transit fleet",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file and fixture sources",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := sim.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("load config: %v", err)
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", cfg.LogLevel)
		}
		logrus.SetLevel(level)
		logrus.WithFields(logrus.Fields{
			"duration_seconds": cfg.DurationSeconds,
			"optimizer_kind":   cfg.OptimizerKind,
			"enable_minibus":   cfg.EnableMinibus,
		}).Info("starting simulation")

		stations, busRows, tensor, err := loadFixtures(cfg)
		if err != nil {
			logrus.Fatalf("load fixtures: %v", err)
		}

		passengerSource, err := buildPassengerSource(cfg)
		if err != nil {
			logrus.Fatalf("build passenger source: %v", err)
		}
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.RandomSeed))
		passengers, err := passengerSource.Generate(cfg, stations, rng)
		if err != nil {
			logrus.Fatalf("generate passengers: %v", err)
		}

		optimizer, err := buildOptimizer(cfg)
		if err != nil {
			logrus.Fatalf("build optimizer: %v", err)
		}

		engine, err := sim.NewEngine(cfg, stations, tensor, busRows, passengers, optimizer)
		if err != nil {
			logrus.Fatalf("construct engine: %v", err)
		}
		if err := engine.Init(); err != nil {
			logrus.Fatalf("initialize engine: %v", err)
		}
		if err := engine.Run(); err != nil {
			logrus.Fatalf("simulation aborted: %v", err)
		}

		engine.Summary().Print()
		logrus.Info("simulation complete")
	},
}

func buildOptimizer(cfg *sim.Config) (sim.Optimizer, error) {
	switch cfg.OptimizerKind {
	case "none", "":
		return sim.NoneOptimizer{}, nil
	case "greedy_insertion":
		return sim.GreedyInsertionOptimizer{MaxDetour: cfg.MaxDetourTime}, nil
	case "external":
		return sim.ExternalOptimizer{
			Command:        cfg.ExternalOptimizerCommand,
			Timeout:        time.Duration(cfg.ExternalOptimizerTimeout * float64(time.Second)),
			MaxWaitingTime: cfg.MaxWaitingTime,
			MaxDetourTime:  cfg.MaxDetourTime,
		}, nil
	default:
		return nil, &sim.ConfigError{Key: "optimizer_kind", Reason: "unrecognized optimizer kind " + cfg.OptimizerKind}
	}
}

func buildPassengerSource(cfg *sim.Config) (sim.PassengerSource, error) {
	switch cfg.PassengerSourceKind {
	case "od_matrix":
		return sim.ODMatrixPoissonSource{RatePerSecond: 0.05}, nil
	case "explicit_list", "":
		specs, err := loadExplicitPassengers(cfg)
		if err != nil {
			return nil, err
		}
		return sim.ExplicitListSource{Specs: specs}, nil
	default:
		return nil, &sim.ConfigError{Key: "passenger_source_kind", Reason: "unrecognized passenger source kind " + cfg.PassengerSourceKind}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "transit-sim.yaml", "Path to the YAML configuration file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(genFixturesCmd)
}
