package sim

import "github.com/sirupsen/logrus"

// Station holds the set of passengers waiting at one stop. Membership is a
// set keyed by PassengerID, but iteration preserves insertion (arrival)
// order — spec §3's "ordered sequence... a passenger appears at most once".
//
// A Station never holds a back-reference to a Passenger; the engine owns
// the Passenger arena and Stations hold only ids (spec §9).
type Station struct {
	ID StationID

	order   []PassengerID
	present map[PassengerID]struct{}
}

// NewStation constructs an empty station. Restores the original
// implementation's eager id validation (SPEC_FULL.md §4).
func NewStation(id StationID) (*Station, error) {
	if id == "" {
		return nil, &ConfigError{Key: "station", Reason: "station id must be non-empty"}
	}
	return &Station{
		ID:      id,
		present: make(map[PassengerID]struct{}),
	}, nil
}

// AddWaiting adds a passenger to the waiting set. Idempotent: re-adding a
// passenger already waiting is a no-op with a warning (spec §4.2).
func (s *Station) AddWaiting(id PassengerID) {
	if _, ok := s.present[id]; ok {
		logrus.WithFields(logrus.Fields{"station_id": s.ID, "passenger_id": id}).
			Warn("passenger already waiting at station, add is a no-op")
		return
	}
	s.present[id] = struct{}{}
	s.order = append(s.order, id)
}

// RemoveWaiting removes a passenger from the waiting set. Returns false if
// the passenger was not present.
func (s *Station) RemoveWaiting(id PassengerID) bool {
	if _, ok := s.present[id]; !ok {
		return false
	}
	delete(s.present, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Waiting returns the waiting passenger ids in arrival order.
func (s *Station) Waiting() []PassengerID {
	out := make([]PassengerID, len(s.order))
	copy(out, s.order)
	return out
}

// WaitingForDestination filters Waiting() to passengers whose destination
// equals dst, preserving arrival order. dest is resolved by the caller
// (the engine holds the Passenger arena); this method only knows ids, so it
// takes a lookup function to stay free of back-references.
func (s *Station) WaitingForDestination(dst StationID, destinationOf func(PassengerID) StationID) []PassengerID {
	var out []PassengerID
	for _, pid := range s.order {
		if destinationOf(pid) == dst {
			out = append(out, pid)
		}
	}
	return out
}

// WaitingCount returns the number of passengers currently waiting.
func (s *Station) WaitingCount() int {
	return len(s.order)
}

// HasWaiting reports whether a given passenger is currently in the waiting
// set of this station.
func (s *Station) HasWaiting(id PassengerID) bool {
	_, ok := s.present[id]
	return ok
}
