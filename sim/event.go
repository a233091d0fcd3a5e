package sim

// EventType identifies the kind of a scheduled event (spec §5).
type EventType string

const (
	EventTypeBusArrival      EventType = "BusArrival"
	EventTypeMinibusArrival  EventType = "MinibusArrival"
	EventTypePassengerAppear EventType = "PassengerAppear"
	EventTypeOptimizeCall    EventType = "OptimizeCall"
	EventTypeSimulationEnd   EventType = "SimulationEnd"
)

// EventTypePriority breaks time ties deterministically (spec §5, "time,
// then a fixed priority ordering, then insertion sequence"). Arrivals are
// processed before optimizer calls so that an OPTIMIZE_CALL scheduled for
// the same instant as an arrival sees the post-arrival world.
var EventTypePriority = map[EventType]int{
	EventTypeBusArrival:      0,
	EventTypeMinibusArrival:  1,
	EventTypePassengerAppear: 2,
	EventTypeOptimizeCall:    3,
	EventTypeSimulationEnd:   10,
}

// Event is one entry in the engine's priority queue.
type Event interface {
	Timestamp() float64
	SeqID() EventID
	Type() EventType
	Execute(e *Engine)
}

// BaseEvent provides the fields common to every event (spec glossary,
// "Event"). The sequence number is passed to each event constructor; the
// engine draws it from its monotonic counter (nextEventID) as it schedules
// the event, so equal-time, equal-priority events pop in scheduling order.
type BaseEvent struct {
	timestamp float64
	seqID     EventID
	eventType EventType
}

func newBaseEvent(timestamp float64, eventType EventType, seqID EventID) BaseEvent {
	return BaseEvent{timestamp: timestamp, seqID: seqID, eventType: eventType}
}

func (e *BaseEvent) Timestamp() float64 { return e.timestamp }
func (e *BaseEvent) SeqID() EventID     { return e.seqID }
func (e *BaseEvent) Type() EventType    { return e.eventType }

// BusArrivalEvent fires when a fixed-route bus reaches its next scheduled
// stop (spec §4.3).
type BusArrivalEvent struct {
	BaseEvent
	BusID   VehicleID
	Station StationID
}

func NewBusArrivalEvent(timestamp float64, busID VehicleID, station StationID, seqID EventID) *BusArrivalEvent {
	return &BusArrivalEvent{
		BaseEvent: newBaseEvent(timestamp, EventTypeBusArrival, seqID),
		BusID:     busID,
		Station:   station,
	}
}

func (e *BusArrivalEvent) Execute(eng *Engine) { eng.handleBusArrival(e) }

// MinibusArrivalEvent fires when a minibus reaches the head stop of its
// current route plan (spec §4.4). It carries no station: a route update
// between scheduling and firing can advance or replace the plan, so the
// handler re-derives the arrival station from the minibus's own live plan
// head rather than trusting a value captured at schedule time (mirrors
// original_source's handle_minibus_arrival, which looks up
// minibus.next_station_id at dispatch rather than from the event payload).
type MinibusArrivalEvent struct {
	BaseEvent
	MinibusID VehicleID
}

func NewMinibusArrivalEvent(timestamp float64, minibusID VehicleID, seqID EventID) *MinibusArrivalEvent {
	return &MinibusArrivalEvent{
		BaseEvent: newBaseEvent(timestamp, EventTypeMinibusArrival, seqID),
		MinibusID: minibusID,
	}
}

func (e *MinibusArrivalEvent) Execute(eng *Engine) { eng.handleMinibusArrival(e) }

// PassengerAppearEvent fires when a new passenger enters the system at a
// station (spec §4.2).
type PassengerAppearEvent struct {
	BaseEvent
	PassengerID PassengerID
}

func NewPassengerAppearEvent(timestamp float64, passengerID PassengerID, seqID EventID) *PassengerAppearEvent {
	return &PassengerAppearEvent{
		BaseEvent:   newBaseEvent(timestamp, EventTypePassengerAppear, seqID),
		PassengerID: passengerID,
	}
}

func (e *PassengerAppearEvent) Execute(eng *Engine) { eng.handlePassengerAppear(e) }

// OptimizeCallEvent fires on the fixed optimization cadence (spec §4.6).
type OptimizeCallEvent struct {
	BaseEvent
}

func NewOptimizeCallEvent(timestamp float64, seqID EventID) *OptimizeCallEvent {
	return &OptimizeCallEvent{BaseEvent: newBaseEvent(timestamp, EventTypeOptimizeCall, seqID)}
}

func (e *OptimizeCallEvent) Execute(eng *Engine) { eng.handleOptimizeCall(e) }

// SimulationEndEvent fires once, at the configured horizon, and halts the
// run (spec §4.1, "the run terminates at a configured end time regardless
// of remaining pending work").
type SimulationEndEvent struct {
	BaseEvent
}

func NewSimulationEndEvent(timestamp float64, seqID EventID) *SimulationEndEvent {
	return &SimulationEndEvent{BaseEvent: newBaseEvent(timestamp, EventTypeSimulationEnd, seqID)}
}

func (e *SimulationEndEvent) Execute(eng *Engine) { eng.handleSimulationEnd(e) }
