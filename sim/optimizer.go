package sim

// PendingRequest is one WAITING passenger not yet referenced by any
// minibus's plan, as seen by the optimizer (spec §6, "Optimizer input
// snapshot"). Assigned passengers stay visible only through the vehicle's
// own Plan in its VehicleSnapshot.
type PendingRequest struct {
	PassengerID PassengerID
	Origin      StationID
	Destination StationID
	AppearTime  float64
	WaitTime    float64
}

// VehicleSnapshot is a read-only view of one minibus's live state, handed
// to the optimizer by the engine (spec §5, "The optimizer receives
// read-only snapshots").
type VehicleSnapshot struct {
	ID        VehicleID
	Location  StationID
	Capacity  int
	Occupancy int
	Onboard   []PassengerID
	Plan      RoutePlan
}

// Optimizer is the closed sum-type contract of spec §9 ("Dynamic dispatch
// over optimizer backends... Reify as a closed sum type {None,
// GreedyInsertion, External} with a single behavioral contract"). Optimize
// must be pure: it must not mutate pending or vehicles, and it must return
// a plan for every vehicle id present in vehicles (possibly empty).
type Optimizer interface {
	Optimize(pending []PendingRequest, vehicles []VehicleSnapshot, now float64, oracle *TravelTimeOracle) (map[VehicleID]RoutePlan, error)
}

// NoneOptimizer is the "none" backend: it never reassigns anything and
// returns each vehicle's existing plan unchanged, satisfying the
// empty-pending-pool boundary behavior of spec §8 unconditionally (spec §6,
// optimizer_kind "none").
type NoneOptimizer struct{}

// Optimize implements Optimizer for NoneOptimizer.
func (NoneOptimizer) Optimize(_ []PendingRequest, vehicles []VehicleSnapshot, _ float64, _ *TravelTimeOracle) (map[VehicleID]RoutePlan, error) {
	out := make(map[VehicleID]RoutePlan, len(vehicles))
	for _, v := range vehicles {
		out[v.ID] = v.Plan
	}
	return out, nil
}

// validateOutput runs the §4.5 "Output validation" pass: every produced
// plan must satisfy the RoutePlan invariants against its vehicle's live
// onboard set. A failing plan is replaced with the empty plan and reported
// to the caller as a logged optimizer bug (spec §7, "recoverable... replace
// the offending plan with the empty plan and log").
func validateOutput(plans map[VehicleID]RoutePlan, vehicles []VehicleSnapshot) map[VehicleID]RoutePlan {
	byID := make(map[VehicleID]VehicleSnapshot, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}
	out := make(map[VehicleID]RoutePlan, len(plans))
	for id, plan := range plans {
		v, ok := byID[id]
		if !ok {
			continue
		}
		onboard := make(map[PassengerID]bool, len(v.Onboard))
		for _, pid := range v.Onboard {
			onboard[pid] = true
		}
		if err := plan.validateStructure(); err != nil {
			logOptimizerBug(id, err)
			out[id] = nil
			continue
		}
		if err := plan.validateAgainstOnboard(onboard, v.Capacity); err != nil {
			logOptimizerBug(id, err)
			out[id] = nil
			continue
		}
		out[id] = plan
	}
	return out
}
