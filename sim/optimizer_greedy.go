package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

func logOptimizerBug(vehicle VehicleID, err error) {
	logrus.WithFields(logrus.Fields{"vehicle_id": vehicle, "error": err}).
		Error("optimizer produced an invalid plan, substituting empty plan")
}

// routeTracker is the occurrence-indexed working representation the greedy
// insertion search builds per vehicle (spec glossary, "Tracker"; spec §9's
// resolved open question chooses occurrence-indexed tracking over the
// original's station-keyed tracking so that a station visited twice for
// different actions is representable).
type routeTracker struct {
	stations []StationID
	pickups  [][]PassengerID
	dropoffs [][]PassengerID
}

func newRouteTrackerFromPlan(plan RoutePlan) *routeTracker {
	t := &routeTracker{
		stations: make([]StationID, len(plan)),
		pickups:  make([][]PassengerID, len(plan)),
		dropoffs: make([][]PassengerID, len(plan)),
	}
	for i, stop := range plan {
		t.stations[i] = stop.Station
		switch stop.Action {
		case ActionPickup:
			t.pickups[i] = append([]PassengerID{}, stop.Passengers...)
			t.dropoffs[i] = []PassengerID{}
		case ActionDropoff:
			t.dropoffs[i] = append([]PassengerID{}, stop.Passengers...)
			t.pickups[i] = []PassengerID{}
		}
	}
	return t
}

func (t *routeTracker) clone() *routeTracker {
	out := &routeTracker{
		stations: append([]StationID{}, t.stations...),
		pickups:  make([][]PassengerID, len(t.pickups)),
		dropoffs: make([][]PassengerID, len(t.dropoffs)),
	}
	for i := range t.pickups {
		out.pickups[i] = append([]PassengerID{}, t.pickups[i]...)
		out.dropoffs[i] = append([]PassengerID{}, t.dropoffs[i]...)
	}
	return out
}

func (t *routeTracker) occurrencesOf(station StationID) []int {
	var out []int
	for i, s := range t.stations {
		if s == station {
			out = append(out, i)
		}
	}
	return out
}

// insertAt inserts a new, empty occurrence for station at position pos.
func (t *routeTracker) insertAt(pos int, station StationID) {
	t.stations = append(t.stations, "")
	copy(t.stations[pos+1:], t.stations[pos:])
	t.stations[pos] = station

	t.pickups = append(t.pickups, nil)
	copy(t.pickups[pos+1:], t.pickups[pos:])
	t.pickups[pos] = []PassengerID{}

	t.dropoffs = append(t.dropoffs, nil)
	copy(t.dropoffs[pos+1:], t.dropoffs[pos:])
	t.dropoffs[pos] = []PassengerID{}
}

func (t *routeTracker) addPickup(pos int, pid PassengerID) {
	t.pickups[pos] = append(t.pickups[pos], pid)
}

func (t *routeTracker) addDropoff(pos int, pid PassengerID) {
	t.dropoffs[pos] = append(t.dropoffs[pos], pid)
}

// feasible runs the capacity-feasibility check of spec §4.5 step 2:
// starting from the vehicle's current occupancy, apply DROPOFF before
// PICKUP at each occurrence in order; reject on overflow, on negative
// occupancy, on a DROPOFF of a passenger not onboard-or-picked-up-earlier,
// or on a PICKUP of a passenger already onboard.
func (t *routeTracker) feasible(capacity int, onboardInitial map[PassengerID]bool) bool {
	reachable := make(map[PassengerID]bool, len(onboardInitial))
	for id := range onboardInitial {
		reachable[id] = true
	}
	occupancy := len(reachable)
	for i := range t.stations {
		for _, pid := range t.dropoffs[i] {
			if !reachable[pid] {
				return false
			}
			delete(reachable, pid)
			occupancy--
			if occupancy < 0 {
				return false
			}
		}
		for _, pid := range t.pickups[i] {
			if reachable[pid] {
				return false
			}
			reachable[pid] = true
			occupancy++
			if occupancy > capacity {
				return false
			}
		}
	}
	return true
}

// cost computes the cumulative, time-dependent travel time of spec §4.5
// step 3: seed the clock at now, add travel_time for each leg using the
// clock at departure, then advance the clock by that amount.
func (t *routeTracker) cost(oracle *TravelTimeOracle, now float64) (float64, error) {
	if len(t.stations) <= 1 {
		return 0, nil
	}
	clock := now
	total := 0.0
	for i := 0; i+1 < len(t.stations); i++ {
		leg, err := oracle.TravelTime(t.stations[i], t.stations[i+1], clock)
		if err != nil {
			return 0, err
		}
		total += leg
		clock += leg
	}
	return total, nil
}

// toPlan serializes the tracker back into a RoutePlan, emitting PICKUP
// before DROPOFF at any occurrence where both are non-empty (spec §4.5,
// "Output reconstruction").
func (t *routeTracker) toPlan() RoutePlan {
	var out RoutePlan
	for i, station := range t.stations {
		if len(t.pickups[i]) > 0 {
			out = append(out, RouteStop{Station: station, Action: ActionPickup, Passengers: append([]PassengerID{}, t.pickups[i]...)})
		}
		if len(t.dropoffs[i]) > 0 {
			out = append(out, RouteStop{Station: station, Action: ActionDropoff, Passengers: append([]PassengerID{}, t.dropoffs[i]...)})
		}
	}
	return out
}

// GreedyInsertionOptimizer assigns pending requests to minibuses by
// per-request, cost-minimizing route insertion (spec §4.5, component C4).
// Greedy and order-dependent by design: every request is tried against
// every vehicle, every accepted plan is feasible, but global optimality is
// not attempted.
type GreedyInsertionOptimizer struct {
	// MaxDetour is threaded through from config (spec §6's
	// max_detour_time) but, per spec §9's resolved open question, is not
	// enforced as a feasibility filter by this implementation — it is
	// advisory only, exactly as the base spec allows.
	MaxDetour float64
}

// Optimize implements Optimizer for GreedyInsertionOptimizer.
func (g GreedyInsertionOptimizer) Optimize(pending []PendingRequest, vehicles []VehicleSnapshot, now float64, oracle *TravelTimeOracle) (map[VehicleID]RoutePlan, error) {
	trackers := make(map[VehicleID]*routeTracker, len(vehicles))
	onboardSets := make(map[VehicleID]map[PassengerID]bool, len(vehicles))
	capacities := make(map[VehicleID]int, len(vehicles))
	order := make([]VehicleID, 0, len(vehicles))
	for _, v := range vehicles {
		trackers[v.ID] = newRouteTrackerFromPlan(v.Plan)
		set := make(map[PassengerID]bool, len(v.Onboard))
		for _, pid := range v.Onboard {
			set[pid] = true
		}
		onboardSets[v.ID] = set
		capacities[v.ID] = v.Capacity
		order = append(order, v.ID)
	}

	for _, req := range pending {
		var bestVehicle VehicleID
		var bestTracker *routeTracker
		bestCost := math.Inf(1)
		found := false

		for _, vid := range order {
			candidate, cost, ok, err := g.bestInsertion(trackers[vid], req, capacities[vid], onboardSets[vid], oracle, now)
			if err != nil {
				return nil, err
			}
			if ok && cost < bestCost {
				bestCost = cost
				bestTracker = candidate
				bestVehicle = vid
				found = true
			}
		}

		if found {
			trackers[bestVehicle] = bestTracker
		} else {
			logrus.WithField("passenger_id", req.PassengerID).
				Warn("no feasible vehicle found for request, left pending")
		}
	}

	out := make(map[VehicleID]RoutePlan, len(vehicles))
	for _, vid := range order {
		out[vid] = trackers[vid].toPlan()
	}
	return validateOutput(out, vehicles), nil
}

// bestInsertion runs the four-case candidate search of spec §4.5 step 1 for
// one (vehicle, request) pair and returns the minimum-cost feasible
// candidate, if any.
func (g GreedyInsertionOptimizer) bestInsertion(base *routeTracker, req PendingRequest, capacity int, onboard map[PassengerID]bool, oracle *TravelTimeOracle, now float64) (*routeTracker, float64, bool, error) {
	originOccs := base.occurrencesOf(req.Origin)
	destOccs := base.occurrencesOf(req.Destination)

	var candidates []*routeTracker

	hasValidPair := false
	for _, o := range originOccs {
		for _, d := range destOccs {
			if o < d {
				hasValidPair = true
			}
		}
	}

	switch {
	case hasValidPair:
		for _, o := range originOccs {
			for _, d := range destOccs {
				if o >= d {
					continue
				}
				c := base.clone()
				c.addPickup(o, req.PassengerID)
				c.addDropoff(d, req.PassengerID)
				candidates = append(candidates, c)
			}
		}
	case len(originOccs) > 0:
		for _, o := range originOccs {
			for insertAt := o + 1; insertAt <= len(base.stations); insertAt++ {
				c := base.clone()
				c.insertAt(insertAt, req.Destination)
				c.addPickup(o, req.PassengerID)
				c.addDropoff(insertAt, req.PassengerID)
				candidates = append(candidates, c)
			}
		}
	case len(destOccs) > 0:
		for _, d := range destOccs {
			for insertAt := 0; insertAt <= d; insertAt++ {
				c := base.clone()
				c.insertAt(insertAt, req.Origin)
				// Inserting before d shifts d's occurrence index by one.
				c.addPickup(insertAt, req.PassengerID)
				c.addDropoff(d+1, req.PassengerID)
				candidates = append(candidates, c)
			}
		}
	default:
		for i := 0; i <= len(base.stations); i++ {
			for j := i + 1; j <= len(base.stations)+1; j++ {
				c := base.clone()
				c.insertAt(i, req.Origin)
				c.insertAt(j, req.Destination)
				c.addPickup(i, req.PassengerID)
				c.addDropoff(j, req.PassengerID)
				candidates = append(candidates, c)
			}
		}
	}

	var best *routeTracker
	bestCost := math.Inf(1)
	found := false
	for _, c := range candidates {
		if !c.feasible(capacity, onboard) {
			continue
		}
		cost, err := c.cost(oracle, now)
		if err != nil {
			return nil, 0, false, err
		}
		if cost < bestCost {
			bestCost = cost
			best = c
			found = true
		}
	}
	return best, bestCost, found, nil
}
