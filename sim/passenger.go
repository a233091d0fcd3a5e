package sim

import "github.com/sirupsen/logrus"

// PassengerStatus is one of the five states in the passenger lifecycle
// state machine (spec §3).
type PassengerStatus string

const (
	PassengerWaiting   PassengerStatus = "WAITING"
	PassengerAssigned  PassengerStatus = "ASSIGNED"
	PassengerOnboard   PassengerStatus = "ONBOARD"
	PassengerArrived   PassengerStatus = "ARRIVED"
	PassengerAbandoned PassengerStatus = "ABANDONED"
)

// Passenger models one trip request from appearance through boarding and
// arrival or abandonment. The engine owns the Passenger arena; stations and
// vehicles reference passengers only by PassengerID (spec §9, "cyclic
// references... re-architect by giving the simulation engine sole
// ownership").
type Passenger struct {
	ID          PassengerID
	Origin      StationID
	Destination StationID
	AppearTime  float64
	MaxWait     float64

	Status          PassengerStatus
	AssignedVehicle VehicleID // zero value means unassigned
	PickupTime      *float64
	ArrivalTime     *float64
}

// NewPassenger constructs a Passenger in WAITING status. Restores the
// original implementation's eager constructor validation (origin ≠
// destination, non-negative appear time, positive max wait) that spec.md's
// distillation states as an invariant but does not wire into a constructor
// (see SPEC_FULL.md §4, grounded on original_source/demand/passenger.py).
func NewPassenger(id PassengerID, origin, destination StationID, appearTime, maxWait float64) (*Passenger, error) {
	if origin == destination {
		return nil, &ConfigError{Key: "passenger." + string(id), Reason: "origin and destination must differ"}
	}
	if appearTime < 0 {
		return nil, &ConfigError{Key: "passenger." + string(id), Reason: "appear time must be non-negative"}
	}
	if maxWait <= 0 {
		return nil, &ConfigError{Key: "passenger." + string(id), Reason: "max wait time must be positive"}
	}
	return &Passenger{
		ID:          id,
		Origin:      origin,
		Destination: destination,
		AppearTime:  appearTime,
		MaxWait:     maxWait,
		Status:      PassengerWaiting,
	}, nil
}

// Assign transitions WAITING -> ASSIGNED when the optimizer attaches a
// vehicle to this passenger.
func (p *Passenger) Assign(vehicle VehicleID, now float64) error {
	if p.Status != PassengerWaiting {
		return &TransitionError{PassengerID: p.ID, From: p.Status, Attempted: "assign", At: now}
	}
	p.Status = PassengerAssigned
	p.AssignedVehicle = vehicle
	return nil
}

// Board transitions WAITING|ASSIGNED -> ONBOARD. A bus may board a
// passenger directly without a prior ASSIGNED state; a minibus always
// boards from ASSIGNED (set by the optimizer on the preceding tick).
func (p *Passenger) Board(now float64) error {
	if p.Status != PassengerWaiting && p.Status != PassengerAssigned {
		return &TransitionError{PassengerID: p.ID, From: p.Status, Attempted: "board", At: now}
	}
	p.Status = PassengerOnboard
	t := now
	p.PickupTime = &t
	return nil
}

// Arrive transitions ONBOARD -> ARRIVED when the vehicle delivers the
// passenger to its destination.
func (p *Passenger) Arrive(now float64) error {
	if p.Status != PassengerOnboard {
		return &TransitionError{PassengerID: p.ID, From: p.Status, Attempted: "arrive", At: now}
	}
	p.Status = PassengerArrived
	t := now
	p.ArrivalTime = &t
	return nil
}

// Abandon transitions WAITING|ASSIGNED -> ABANDONED when wait exceeds
// MaxWait.
func (p *Passenger) Abandon(now float64) error {
	if p.Status != PassengerWaiting && p.Status != PassengerAssigned {
		return &TransitionError{PassengerID: p.ID, From: p.Status, Attempted: "abandon", At: now}
	}
	p.Status = PassengerAbandoned
	logrus.WithFields(logrus.Fields{
		"passenger_id": p.ID,
		"wait_time":    now - p.AppearTime,
		"max_wait":     p.MaxWait,
	}).Warn("passenger abandoned waiting")
	return nil
}

// ExceededWait reports whether a still-WAITING passenger has waited longer
// than MaxWait. It does not mutate state; the caller (the engine's timeout
// sweep) decides whether to call Abandon.
func (p *Passenger) ExceededWait(now float64) bool {
	if p.Status != PassengerWaiting {
		return false
	}
	return now-p.AppearTime > p.MaxWait
}

// WaitTime returns the time from appearance to boarding (or, if not yet
// boarded, the time waited so far relative to now).
func (p *Passenger) WaitTime(now float64) float64 {
	if p.PickupTime != nil {
		return *p.PickupTime - p.AppearTime
	}
	return now - p.AppearTime
}

// TravelTime returns the time from boarding to arrival, or nil if the
// passenger has not yet arrived.
func (p *Passenger) TravelTime() *float64 {
	if p.PickupTime == nil || p.ArrivalTime == nil {
		return nil
	}
	d := *p.ArrivalTime - *p.PickupTime
	return &d
}

// TotalTime returns the time from appearance to arrival, or nil if the
// passenger has not yet arrived.
func (p *Passenger) TotalTime() *float64 {
	if p.ArrivalTime == nil {
		return nil
	}
	d := *p.ArrivalTime - p.AppearTime
	return &d
}

// IsWaiting reports whether the passenger is currently WAITING.
func (p *Passenger) IsWaiting() bool { return p.Status == PassengerWaiting }

// IsOnboard reports whether the passenger is currently ONBOARD.
func (p *Passenger) IsOnboard() bool { return p.Status == PassengerOnboard }

// IsTerminal reports whether the passenger has reached ARRIVED or
// ABANDONED, either of which is final.
func (p *Passenger) IsTerminal() bool {
	return p.Status == PassengerArrived || p.Status == PassengerAbandoned
}
