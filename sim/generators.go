package sim

import "fmt"

// ODMatrixPoissonSource generates passenger appearances as a Poisson
// process with uniformly random origin/destination pairs (spec §1, "the
// OD-matrix Poisson passenger generator" — a concrete, minimal
// implementation of the external collaborator interface, grounded on the
// teacher's GeneratePoissonArrivals exponential-interarrival technique).
type ODMatrixPoissonSource struct {
	RatePerSecond float64
}

// Generate implements PassengerSource.
func (s ODMatrixPoissonSource) Generate(cfg *Config, stations []StationID, rng *PartitionedRNG) ([]PassengerAppearSpec, error) {
	if len(stations) < 2 {
		return nil, &ConfigError{Key: "stations_source", Reason: "need at least two stations to generate OD pairs"}
	}
	if s.RatePerSecond <= 0 {
		return nil, &ConfigError{Key: "passenger_source.rate", Reason: "must be positive"}
	}
	r := rng.ForSubsystem(SubsystemPassengerArrivals)

	var out []PassengerAppearSpec
	t := 0.0
	i := 0
	for {
		t += r.ExpFloat64() / s.RatePerSecond
		if t >= cfg.DurationSeconds {
			break
		}
		i++
		origin := stations[r.Intn(len(stations))]
		destination := origin
		for destination == origin {
			destination = stations[r.Intn(len(stations))]
		}
		out = append(out, PassengerAppearSpec{
			ID:          PassengerID(fmt.Sprintf("p-%d", i)),
			Origin:      origin,
			Destination: destination,
			AppearTime:  t,
		})
	}
	return out, nil
}

// ExplicitListSource wraps a pre-built passenger list (spec §6,
// passenger_source_kind "explicit_list"), the source used by fixtures and
// by tests that need deterministic, hand-authored scenarios.
type ExplicitListSource struct {
	Specs []PassengerAppearSpec
}

// Generate implements PassengerSource.
func (s ExplicitListSource) Generate(cfg *Config, stations []StationID, rng *PartitionedRNG) ([]PassengerAppearSpec, error) {
	return s.Specs, nil
}
