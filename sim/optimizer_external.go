package sim

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gopkg.in/yaml.v3"
)

// externalSnapshot is the on-disk form of an optimizer call (spec §6,
// "External-optimizer IPC... write the snapshot (minus the callable) to a
// file"). The travel_time callable cannot cross a process boundary, so the
// external process is expected to resolve travel times itself from the
// same tensor source named in config.
type externalSnapshot struct {
	CurrentTime         float64                    `yaml:"current_time"`
	PendingRequests     []PendingRequest           `yaml:"pending_requests"`
	Minibuses           []externalMinibusSnapshot  `yaml:"minibuses"`
	MaxWaitingTime      float64                    `yaml:"max_waiting_time"`
	MaxDetourTime       float64                    `yaml:"max_detour_time"`
}

type externalMinibusSnapshot struct {
	MinibusID         VehicleID   `yaml:"minibus_id"`
	CurrentLocation   StationID   `yaml:"current_location"`
	Capacity          int         `yaml:"capacity"`
	CurrentOccupancy  int         `yaml:"current_occupancy"`
	PassengersOnboard []PassengerID `yaml:"passengers_onboard"`
	CurrentRoutePlan  RoutePlan   `yaml:"current_route_plan"`
}

type externalOutput struct {
	Plans map[VehicleID]RoutePlan `yaml:"plans"`
}

// ExternalOptimizer delegates optimization to a child process per spec §6's
// IPC contract: write the snapshot to a file, exec the configured command
// with input/output paths as arguments, read the output file, and enforce a
// wall-clock timeout. Specified only as a boundary (spec §1 says it is not
// required for a conforming core), but implemented here since it costs
// little and exercises os/exec the way a systems-language rewrite would
// (SPEC_FULL.md §5).
type ExternalOptimizer struct {
	Command        string
	Timeout        time.Duration
	WorkDir        string // directory for scratch input/output files; defaults to os.TempDir()
	MaxWaitingTime float64
	MaxDetourTime  float64
}

// Optimize implements Optimizer for ExternalOptimizer.
func (x ExternalOptimizer) Optimize(pending []PendingRequest, vehicles []VehicleSnapshot, now float64, oracle *TravelTimeOracle) (map[VehicleID]RoutePlan, error) {
	if x.Command == "" {
		return nil, &ConfigError{Key: "external_optimizer_command", Reason: "must be set when optimizer_kind is external"}
	}
	workDir := x.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	snap := externalSnapshot{
		CurrentTime:     now,
		PendingRequests: pending,
		MaxWaitingTime:  x.MaxWaitingTime,
		MaxDetourTime:   x.MaxDetourTime,
	}
	for _, v := range vehicles {
		snap.Minibuses = append(snap.Minibuses, externalMinibusSnapshot{
			MinibusID:         v.ID,
			CurrentLocation:   v.Location,
			Capacity:          v.Capacity,
			CurrentOccupancy:  v.Occupancy,
			PassengersOnboard: v.Onboard,
			CurrentRoutePlan:  v.Plan,
		})
	}

	inFile, err := os.CreateTemp(workDir, "optimizer-in-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("external optimizer: create input file: %w", err)
	}
	defer os.Remove(inFile.Name())
	outPath := inFile.Name() + ".out"
	defer os.Remove(outPath)

	enc := yaml.NewEncoder(inFile)
	if err := enc.Encode(snap); err != nil {
		inFile.Close()
		return nil, fmt.Errorf("external optimizer: encode snapshot: %w", err)
	}
	enc.Close()
	inFile.Close()

	timeout := x.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, x.Command, inFile.Name(), outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("external optimizer: %w (output: %s)", err, out)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("external optimizer: read output: %w", err)
	}
	var out externalOutput
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("external optimizer: decode output: %w", err)
	}

	return validateOutput(out.Plans, vehicles), nil
}
