package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// StopAction is one of the two actions a RoutePlan stop can perform.
type StopAction string

const (
	ActionPickup  StopAction = "PICKUP"
	ActionDropoff StopAction = "DROPOFF"
)

// RouteStop is one stop in a RoutePlan: visit Station, perform Action on
// every id in Passengers.
type RouteStop struct {
	Station    StationID
	Action     StopAction
	Passengers []PassengerID
}

// RoutePlan is the ordered sequence of stops driving a minibus (spec §3).
type RoutePlan []RouteStop

// Clone returns a deep copy of the plan, since RoutePlan values are shared
// between the optimizer's output and the live minibus.
func (p RoutePlan) Clone() RoutePlan {
	out := make(RoutePlan, len(p))
	for i, stop := range p {
		ids := make([]PassengerID, len(stop.Passengers))
		copy(ids, stop.Passengers)
		out[i] = RouteStop{Station: stop.Station, Action: stop.Action, Passengers: ids}
	}
	return out
}

// validateStructure checks RoutePlan invariants 1, 2 and the basic shape
// (known action) without reference to any
// vehicle's live state. This is the "structural" half of update_plan's
// validation (spec §4.4 step 1).
func (p RoutePlan) validateStructure() error {
	seenPickup := make(map[PassengerID]bool)
	seenDropoff := make(map[PassengerID]bool)
	for i, stop := range p {
		if stop.Action != ActionPickup && stop.Action != ActionDropoff {
			return fmt.Errorf("stop %d: unknown action %q", i, stop.Action)
		}
		for _, pid := range stop.Passengers {
			if stop.Action == ActionPickup {
				if seenPickup[pid] {
					return fmt.Errorf("passenger %s appears in two PICKUP stops", pid)
				}
				seenPickup[pid] = true
			} else {
				if seenDropoff[pid] {
					return fmt.Errorf("passenger %s appears in two DROPOFF stops", pid)
				}
				seenDropoff[pid] = true
			}
		}
	}
	return nil
}

// validateAgainstOnboard checks RoutePlan invariants 3, 4 and 5 against a
// live onboard set and capacity (spec §3, §4.4 step 2): every DROPOFF id is
// reachable, no PICKUP of an already-onboard passenger, and the simulated
// occupancy trajectory never exceeds capacity or goes negative.
func (p RoutePlan) validateAgainstOnboard(onboard map[PassengerID]bool, capacity int) error {
	reachable := make(map[PassengerID]bool, len(onboard))
	for id := range onboard {
		reachable[id] = true
	}
	occupancy := len(onboard)
	for i, stop := range p {
		switch stop.Action {
		case ActionDropoff:
			for _, pid := range stop.Passengers {
				if !reachable[pid] {
					return fmt.Errorf("stop %d: DROPOFF of %s which is neither onboard nor picked up earlier in the plan", i, pid)
				}
				delete(reachable, pid)
				occupancy--
				if occupancy < 0 {
					return fmt.Errorf("stop %d: DROPOFF of %s drives occupancy negative", i, pid)
				}
			}
		case ActionPickup:
			for _, pid := range stop.Passengers {
				if reachable[pid] || onboard[pid] {
					return fmt.Errorf("stop %d: PICKUP of %s who is already onboard", i, pid)
				}
				reachable[pid] = true
				occupancy++
				if occupancy > capacity {
					return fmt.Errorf("stop %d: PICKUP of %s exceeds capacity %d", i, pid, capacity)
				}
			}
		}
	}
	return nil
}

// equalRemaining reports whether two plans are the "semantically identical"
// remaining segments described in spec §4.4 step 3: same sequence of
// station/action/passenger-set triples, ignoring arrival-time estimates
// (RoutePlan carries no time estimates, so this is a structural equality
// check with passenger sets compared as sets, not as ordered slices).
func equalRemaining(a, b RoutePlan) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Station != b[i].Station || a[i].Action != b[i].Action {
			return false
		}
		if !samePassengerSet(a[i].Passengers, b[i].Passengers) {
			return false
		}
	}
	return true
}

func samePassengerSet(a, b []PassengerID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[PassengerID]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		set[id]--
	}
	for _, v := range set {
		if v != 0 {
			return false
		}
	}
	return true
}

// MinibusStatus is one of the three states a minibus occupies.
type MinibusStatus string

const (
	MinibusIdle    MinibusStatus = "IDLE"
	MinibusEnRoute MinibusStatus = "EN_ROUTE"
	MinibusServing MinibusStatus = "SERVING"
)

// Minibus executes a dynamic RoutePlan produced by the optimizer (spec
// §4.4, component C3b). It enforces the RoutePlan invariants on every
// operation that touches its plan or onboard set.
type Minibus struct {
	ID       VehicleID
	Capacity int

	Location StationID
	onboard  []PassengerID
	plan     RoutePlan
	Status   MinibusStatus

	nextStation *StationID
	nextArrival *float64

	served      int
	distanceEst float64
}

// NewMinibus constructs an idle minibus at the given initial location.
func NewMinibus(id VehicleID, capacity int, initialLocation StationID) (*Minibus, error) {
	if capacity <= 0 {
		return nil, &ConfigError{Key: "minibus." + string(id), Reason: "capacity must be positive"}
	}
	if initialLocation == "" {
		return nil, &ConfigError{Key: "minibus." + string(id), Reason: "initial location must be set"}
	}
	return &Minibus{
		ID:       id,
		Capacity: capacity,
		Location: initialLocation,
		Status:   MinibusIdle,
	}, nil
}

// Onboard returns the current onboard passenger ids.
func (m *Minibus) Onboard() []PassengerID {
	out := make([]PassengerID, len(m.onboard))
	copy(out, m.onboard)
	return out
}

// OnboardSet returns the current onboard set as a membership map, the form
// RoutePlan validation needs.
func (m *Minibus) OnboardSet() map[PassengerID]bool {
	set := make(map[PassengerID]bool, len(m.onboard))
	for _, id := range m.onboard {
		set[id] = true
	}
	return set
}

// Occupancy returns the current onboard count.
func (m *Minibus) Occupancy() int { return len(m.onboard) }

// Plan returns the current route plan (not a copy — callers must not
// mutate it).
func (m *Minibus) Plan() RoutePlan { return m.plan }

// NextStation returns the minibus's next stop, or ("", false) if idle.
func (m *Minibus) NextStation() (StationID, bool) {
	if m.nextStation == nil {
		return "", false
	}
	return *m.nextStation, true
}

// NextArrivalTime returns the scheduled time of the next stop, or
// (0, false) if idle.
func (m *Minibus) NextArrivalTime() (float64, bool) {
	if m.nextArrival == nil {
		return 0, false
	}
	return *m.nextArrival, true
}

// Served returns the cumulative number of passengers delivered.
func (m *Minibus) Served() int { return m.served }

// UpdatePlan validates and installs a new route plan (spec §4.4,
// "Plan update protocol"). If the minibus is EN_ROUTE and the remaining
// segment of its current plan is semantically identical to the new plan,
// the update is a no-op — this preserves ETAs and avoids interrupting an
// in-progress trip (spec §9's resolved open question).
func (m *Minibus) UpdatePlan(newPlan RoutePlan, now float64, oracle *TravelTimeOracle) error {
	if err := newPlan.validateStructure(); err != nil {
		return err
	}
	if err := newPlan.validateAgainstOnboard(m.OnboardSet(), m.Capacity); err != nil {
		return err
	}

	if m.Status == MinibusEnRoute && equalRemaining(m.plan, newPlan) {
		return nil // no-op: preserves in-flight ETA
	}

	m.plan = newPlan
	if len(m.plan) == 0 {
		m.Status = MinibusIdle
		m.nextStation = nil
		m.nextArrival = nil
		return nil
	}
	head := m.plan[0].Station
	eta, err := oracle.TravelTime(m.Location, head, now)
	if err != nil {
		return err
	}
	arrival := now + eta
	m.nextStation = &head
	m.nextArrival = &arrival
	m.Status = MinibusEnRoute
	return nil
}

// Arrive runs the minibus arrival protocol at the head stop of its plan
// (spec §4.4, "Arrival protocol"): execute the head stop's action
// defensively, pop it, then advance to the new head or go IDLE.
func (m *Minibus) Arrive(now float64, station *Station, passengers PassengerStore, oracle *TravelTimeOracle) (*ArrivalResult, error) {
	if len(m.plan) == 0 {
		return nil, &DataIntegrityError{Entity: string(m.ID), Reason: "Arrive called with an empty route plan"}
	}
	head := m.plan[0]
	if head.Station != station.ID {
		return nil, &DataIntegrityError{Entity: string(m.ID), Reason: "station passed to Arrive does not match plan head"}
	}
	m.Location = station.ID
	m.Status = MinibusServing // transient: this handler runs to completion before any other event (spec §5)
	result := &ArrivalResult{}

	switch head.Action {
	case ActionPickup:
		for _, pid := range head.Passengers {
			if len(m.onboard) >= m.Capacity {
				logrus.WithFields(logrus.Fields{"minibus_id": m.ID, "passenger_id": pid}).
					Warn("minibus full, skipping scheduled pickup")
				continue
			}
			if m.isOnboard(pid) {
				logrus.WithFields(logrus.Fields{"minibus_id": m.ID, "passenger_id": pid}).
					Error("optimizer bug: PICKUP of a passenger already onboard")
				continue
			}
			if !station.HasWaiting(pid) {
				// May have boarded elsewhere or timed out since the plan
				// was computed; not an error.
				continue
			}
			p := passengers.Get(pid)
			if p == nil {
				continue
			}
			if err := p.Board(now); err != nil {
				return nil, err
			}
			station.RemoveWaiting(pid)
			m.onboard = append(m.onboard, pid)
			result.Boarded = append(result.Boarded, pid)
		}
	case ActionDropoff:
		for _, pid := range head.Passengers {
			if !m.isOnboard(pid) {
				// The critical defensive check: refuse the individual
				// dropoff rather than letting occupancy drift negative.
				logrus.WithFields(logrus.Fields{"minibus_id": m.ID, "passenger_id": pid}).
					Error("refusing DROPOFF of passenger who is not onboard")
				continue
			}
			p := passengers.Get(pid)
			if p == nil {
				logrus.WithFields(logrus.Fields{"minibus_id": m.ID, "passenger_id": pid}).
					Error("onboard passenger missing from arena at dropoff")
				continue
			}
			if err := p.Arrive(now); err != nil {
				return nil, err
			}
			m.removeOnboard(pid)
			m.served++
			result.Alighted = append(result.Alighted, pid)
		}
	}

	// Pop the executed stop.
	m.plan = m.plan[1:]
	if len(m.plan) == 0 {
		m.Status = MinibusIdle
		m.nextStation = nil
		m.nextArrival = nil
		return result, nil
	}
	nextHead := m.plan[0].Station
	eta, err := oracle.TravelTime(m.Location, nextHead, now)
	if err != nil {
		return nil, err
	}
	m.distanceEst += eta
	arrival := now + eta
	m.nextStation = &nextHead
	m.nextArrival = &arrival
	m.Status = MinibusEnRoute
	return result, nil
}

func (m *Minibus) isOnboard(id PassengerID) bool {
	for _, pid := range m.onboard {
		if pid == id {
			return true
		}
	}
	return false
}

func (m *Minibus) removeOnboard(id PassengerID) {
	for i, pid := range m.onboard {
		if pid == id {
			m.onboard = append(m.onboard[:i], m.onboard[i+1:]...)
			return
		}
	}
}
