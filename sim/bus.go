package sim

import "github.com/sirupsen/logrus"

// Bus is a deterministic fixed-route vehicle (spec §4.3, component C3a): no
// route changes, no acceptance of off-route passengers, no optimizer
// interaction of any kind.
type Bus struct {
	ID               VehicleID
	Route            []StationID
	ScheduledArrival []float64
	Capacity         int

	currentIndex int
	onboard      []PassengerID
	nextStation  *StationID
	nextArrival  *float64
	served       int
}

// NewBus constructs a bus at the head of its route.
func NewBus(id VehicleID, route []StationID, scheduledArrival []float64, capacity int) (*Bus, error) {
	if len(route) == 0 {
		return nil, &ConfigError{Key: "bus." + string(id), Reason: "route must not be empty"}
	}
	if len(route) != len(scheduledArrival) {
		return nil, &ConfigError{Key: "bus." + string(id), Reason: "route and scheduled arrival lengths must match"}
	}
	if capacity <= 0 {
		return nil, &ConfigError{Key: "bus." + string(id), Reason: "capacity must be positive"}
	}
	b := &Bus{
		ID:               id,
		Route:            route,
		ScheduledArrival: scheduledArrival,
		Capacity:         capacity,
		currentIndex:     -1, // not yet arrived anywhere; first arrival targets Route[0]
	}
	ns := route[0]
	na := scheduledArrival[0]
	b.nextStation = &ns
	b.nextArrival = &na
	return b, nil
}

// CurrentStation returns the station the bus currently occupies. Invalid
// before the bus's first arrival event has been processed.
func (b *Bus) CurrentStation() StationID { return b.Route[b.currentIndex] }

// IsTerminal reports whether the bus has reached the last stop on its
// route.
func (b *Bus) IsTerminal() bool { return b.currentIndex == len(b.Route)-1 }

// NextStation returns the bus's next stop, or ("", false) at terminus.
func (b *Bus) NextStation() (StationID, bool) {
	if b.nextStation == nil {
		return "", false
	}
	return *b.nextStation, true
}

// NextArrivalTime returns the scheduled time of the next stop, or
// (0, false) at terminus.
func (b *Bus) NextArrivalTime() (float64, bool) {
	if b.nextArrival == nil {
		return 0, false
	}
	return *b.nextArrival, true
}

// Onboard returns the current onboard passenger ids.
func (b *Bus) Onboard() []PassengerID {
	out := make([]PassengerID, len(b.onboard))
	copy(out, b.onboard)
	return out
}

// Served returns the cumulative number of passengers this bus has
// delivered to their destination.
func (b *Bus) Served() int { return b.served }

// Arrive runs the bus arrival protocol at its current station (spec §4.3):
// alight every onboard passenger whose destination is this station, then
// board waiting passengers in arrival order — skipping those whose
// destination is not strictly later on the route than the current index —
// stopping when full. Finally advances the route index.
func (b *Bus) Arrive(now float64, station *Station, passengers PassengerStore) (*ArrivalResult, error) {
	if b.nextStation == nil {
		return nil, &DataIntegrityError{Entity: string(b.ID), Reason: "bus is already at terminus"}
	}
	here := *b.nextStation
	if station.ID != here {
		return nil, &DataIntegrityError{Entity: string(b.ID), Reason: "station passed to Arrive does not match scheduled next stop"}
	}
	b.currentIndex++
	result := &ArrivalResult{}

	// 1. Alight.
	remaining := b.onboard[:0:0]
	for _, pid := range b.onboard {
		p := passengers.Get(pid)
		if p == nil {
			logrus.WithFields(logrus.Fields{"bus_id": b.ID, "passenger_id": pid}).
				Error("onboard passenger missing from arena at alight")
			continue
		}
		if p.Destination == here {
			if err := p.Arrive(now); err != nil {
				return nil, err
			}
			b.served++
			result.Alighted = append(result.Alighted, pid)
			continue
		}
		remaining = append(remaining, pid)
	}
	b.onboard = remaining

	// 2. Board, in arrival order, skipping off-route destinations, stopping
	// when full.
	for _, pid := range station.Waiting() {
		if len(b.onboard) >= b.Capacity {
			break
		}
		p := passengers.Get(pid)
		if p == nil {
			continue
		}
		if !b.destinationOnRouteAfterCurrent(p.Destination) {
			continue // remains waiting, may board a later vehicle
		}
		if err := p.Board(now); err != nil {
			return nil, err
		}
		station.RemoveWaiting(pid)
		b.onboard = append(b.onboard, pid)
		result.Boarded = append(result.Boarded, pid)
	}

	// 3. Advance.
	if b.currentIndex < len(b.Route)-1 {
		ns := b.Route[b.currentIndex+1]
		na := b.ScheduledArrival[b.currentIndex+1]
		b.nextStation = &ns
		b.nextArrival = &na
	} else {
		b.nextStation = nil
		b.nextArrival = nil
	}

	return result, nil
}

// destinationOnRouteAfterCurrent reports whether dst occurs anywhere on the
// route strictly after the bus's current index.
func (b *Bus) destinationOnRouteAfterCurrent(dst StationID) bool {
	for i := b.currentIndex + 1; i < len(b.Route); i++ {
		if b.Route[i] == dst {
			return true
		}
	}
	return false
}
