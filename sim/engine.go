package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Engine owns every entity arena, the event queue, and the simulation
// clock (spec §9, "the simulation engine sole ownership of all entities in
// flat arenas keyed by stable ids"). Sub-components hold ids only; all
// mutation is mediated by Engine methods or by the entity's own methods
// invoked from here.
type Engine struct {
	cfg *Config

	stations     map[StationID]*Station
	stationOrder []StationID

	passengers     map[PassengerID]*Passenger
	passengerSpecs map[PassengerID]PassengerAppearSpec

	buses    map[VehicleID]*Bus
	busOrder []VehicleID

	minibuses    map[VehicleID]*Minibus
	minibusOrder []VehicleID

	oracle    *TravelTimeOracle
	optimizer Optimizer

	queue   *EventHeap
	clock   float64
	nextSeq EventID
	endTime float64

	rng *PartitionedRNG

	// pendingOrder/pendingSet track ids eligible for the next optimizer
	// tick: passengers who are WAITING and not yet referenced by any
	// minibus's route plan (spec glossary, "Pending pool"; spec §4.6's
	// resolved reading, see DESIGN.md).
	pendingOrder []PassengerID
	pendingSet   map[PassengerID]bool

	totalSeen int
	fatal     error
}

// NewEngine wires the loaded stations, travel-time tensor, bus schedule,
// generated passenger appearances, and chosen optimizer into a ready-to-run
// Engine, performing the initialization sequence's first two steps (spec
// §4.6 steps 1–2: load stations/tensor, instantiate buses) eagerly and
// deferring the rest to Init (minibus fleet, passenger events, end event),
// since those depend on config flags the caller may still want to adjust
// between construction and Init in tests.
func NewEngine(cfg *Config, stations []StationID, tensor *TravelTimeTensor, busRows []BusScheduleRow, passengerSpecs []PassengerAppearSpec, optimizer Optimizer) (*Engine, error) {
	if cfg == nil {
		return nil, &ConfigError{Key: "config", Reason: "must not be nil"}
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:            cfg,
		stations:       make(map[StationID]*Station, len(stations)),
		passengers:     make(map[PassengerID]*Passenger),
		passengerSpecs: make(map[PassengerID]PassengerAppearSpec, len(passengerSpecs)),
		buses:          make(map[VehicleID]*Bus),
		minibuses:      make(map[VehicleID]*Minibus),
		queue:          NewEventHeap(),
		endTime:        cfg.DurationSeconds,
		rng:            NewPartitionedRNG(NewSimulationKey(cfg.RandomSeed)),
		pendingSet:     make(map[PassengerID]bool),
	}

	for _, id := range stations {
		st, err := NewStation(id)
		if err != nil {
			return nil, err
		}
		e.stations[id] = st
		e.stationOrder = append(e.stationOrder, id)
	}

	oracle, err := NewTravelTimeOracle(tensor,
		WithCacheSize(cfg.TravelTimeCacheSize),
		WithStrictValidation(cfg.StrictTensorValidation))
	if err != nil {
		return nil, err
	}
	e.oracle = oracle

	if err := e.buildBuses(busRows, cfg.BusCapacity); err != nil {
		return nil, err
	}

	for _, spec := range passengerSpecs {
		e.passengerSpecs[spec.ID] = spec
	}

	e.optimizer = optimizer
	if e.optimizer == nil {
		e.optimizer = NoneOptimizer{}
	}

	return e, nil
}

// buildBuses groups schedule rows by bus id, sorts each by stop_sequence,
// and constructs one Bus per group (spec §6, "bus_schedule_source").
func (e *Engine) buildBuses(rows []BusScheduleRow, defaultCapacity int) error {
	grouped := make(map[VehicleID][]BusScheduleRow)
	var order []VehicleID
	for _, r := range rows {
		if _, ok := grouped[r.BusID]; !ok {
			order = append(order, r.BusID)
		}
		grouped[r.BusID] = append(grouped[r.BusID], r)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, busID := range order {
		group := grouped[busID]
		sort.Slice(group, func(i, j int) bool { return group[i].StopSequence < group[j].StopSequence })
		route := make([]StationID, len(group))
		arrivals := make([]float64, len(group))
		for i, r := range group {
			route[i] = r.StationID
			arrivals[i] = r.ArrivalTime
		}
		bus, err := NewBus(busID, route, arrivals, defaultCapacity)
		if err != nil {
			return err
		}
		e.buses[busID] = bus
		e.busOrder = append(e.busOrder, busID)
	}
	return nil
}

// Init runs the remainder of the initialization sequence (spec §4.6, steps
// 2–5): push each bus's first arrival, instantiate the minibus fleet and
// schedule the first OPTIMIZE_CALL, push PASSENGER_APPEAR events, and push
// SIMULATION_END at the configured duration.
func (e *Engine) Init() error {
	for _, busID := range e.busOrder {
		bus := e.buses[busID]
		station, ok := bus.NextStation()
		if !ok {
			continue // not reached for buses built by NewBus, which rejects an empty route
		}
		t, _ := bus.NextArrivalTime()
		e.schedule(NewBusArrivalEvent(t, busID, station, e.nextEventID()))
	}

	if e.cfg.EnableMinibus {
		if err := e.buildMinibuses(); err != nil {
			return err
		}
		e.schedule(NewOptimizeCallEvent(e.cfg.OptimizationInterval, e.nextEventID()))
	}

	for _, spec := range e.passengerSpecs {
		e.schedule(NewPassengerAppearEvent(spec.AppearTime, spec.ID, e.nextEventID()))
	}

	e.schedule(NewSimulationEndEvent(e.endTime, e.nextEventID()))
	return nil
}

// buildMinibuses instantiates the minibus fleet from config, resolving
// "random" initial placement through the partitioned RNG's dedicated
// subsystem (spec §6, "minibus_initial_locations (list of station ids or
// the literal random)"; spec §5, "Determinism").
func (e *Engine) buildMinibuses() error {
	locations, err := e.resolveMinibusLocations()
	if err != nil {
		return err
	}
	for i := 0; i < e.cfg.NumMinibuses; i++ {
		id := VehicleID(fmt.Sprintf("mb-%d", i+1))
		mb, err := NewMinibus(id, e.cfg.MinibusCapacity, locations[i])
		if err != nil {
			return err
		}
		e.minibuses[id] = mb
		e.minibusOrder = append(e.minibusOrder, id)
	}
	return nil
}

func (e *Engine) resolveMinibusLocations() ([]StationID, error) {
	if len(e.cfg.MinibusInitialLocations) == 1 && e.cfg.MinibusInitialLocations[0] == "random" {
		if len(e.stationOrder) == 0 {
			return nil, &ConfigError{Key: "minibus_initial_locations", Reason: "no stations loaded to place minibuses at"}
		}
		rng := e.rng.ForSubsystem(SubsystemMinibusPlacement)
		out := make([]StationID, e.cfg.NumMinibuses)
		for i := range out {
			out[i] = e.stationOrder[rng.Intn(len(e.stationOrder))]
		}
		return out, nil
	}
	out := make([]StationID, len(e.cfg.MinibusInitialLocations))
	for i, s := range e.cfg.MinibusInitialLocations {
		id := StationID(s)
		if _, ok := e.stations[id]; !ok {
			return nil, &ConfigError{Key: "minibus_initial_locations", Reason: fmt.Sprintf("unknown station %q", s)}
		}
		out[i] = id
	}
	return out, nil
}

func (e *Engine) nextEventID() EventID {
	e.nextSeq++
	return e.nextSeq
}

func (e *Engine) schedule(ev Event) { e.queue.Schedule(ev) }

// Get implements PassengerStore for vehicle arrival handlers.
func (e *Engine) Get(id PassengerID) *Passenger { return e.passengers[id] }

func (e *Engine) addPending(id PassengerID) {
	if e.pendingSet[id] {
		return
	}
	e.pendingSet[id] = true
	e.pendingOrder = append(e.pendingOrder, id)
}

func (e *Engine) removePending(id PassengerID) {
	if !e.pendingSet[id] {
		return
	}
	delete(e.pendingSet, id)
	for i, pid := range e.pendingOrder {
		if pid == id {
			e.pendingOrder = append(e.pendingOrder[:i], e.pendingOrder[i+1:]...)
			break
		}
	}
}

// Run drains the event queue (spec §4.6, "Main loop"). Fatal errors from a
// handler abort the run and are returned located at the offending event's
// time (spec §7, "aborts on a fatal error with a message locating the
// offending event time and entity id").
func (e *Engine) Run() error {
	for {
		ev := e.queue.PopNext()
		if ev == nil {
			return nil
		}
		e.clock = ev.Timestamp()
		ev.Execute(e)
		if e.fatal != nil {
			return fmt.Errorf("at t=%.2f: %w", e.clock, e.fatal)
		}
		if ev.Type() == EventTypeSimulationEnd {
			return nil
		}
		e.sweepTimeouts()
	}
}

func (e *Engine) handleBusArrival(ev *BusArrivalEvent) {
	bus, ok := e.buses[ev.BusID]
	if !ok {
		e.fail(&DataIntegrityError{Entity: string(ev.BusID), Reason: "bus arrival for unknown bus"})
		return
	}
	station, ok := e.stations[ev.Station]
	if !ok {
		e.fail(UnknownStation(ev.Station))
		return
	}
	result, err := bus.Arrive(e.clock, station, e)
	if err != nil {
		e.fail(err)
		return
	}
	for _, pid := range result.Boarded {
		e.removePending(pid)
	}
	if next, ok := bus.NextStation(); ok {
		t, _ := bus.NextArrivalTime()
		e.schedule(NewBusArrivalEvent(t, ev.BusID, next, e.nextEventID()))
	}
}

func (e *Engine) handleMinibusArrival(ev *MinibusArrivalEvent) {
	mb, ok := e.minibuses[ev.MinibusID]
	if !ok {
		e.fail(&DataIntegrityError{Entity: string(ev.MinibusID), Reason: "minibus arrival for unknown minibus"})
		return
	}
	// The plan head, not the value this event was scheduled with, is the
	// arrival station: an OPTIMIZE_CALL between scheduling and firing may
	// have changed the plan, leaving this event a stale duplicate. A
	// minibus that has since gone IDLE means this wakeup is stale outright;
	// ignore it instead of failing.
	head, ok := mb.NextStation()
	if !ok {
		logrus.WithField("minibus_id", ev.MinibusID).Debug("stale minibus arrival ignored: minibus is idle")
		return
	}
	station, ok := e.stations[head]
	if !ok {
		e.fail(UnknownStation(head))
		return
	}
	result, err := mb.Arrive(e.clock, station, e, e.oracle)
	if err != nil {
		e.fail(err)
		return
	}
	for _, pid := range result.Boarded {
		e.removePending(pid)
	}
	if _, ok := mb.NextStation(); ok {
		t, _ := mb.NextArrivalTime()
		e.schedule(NewMinibusArrivalEvent(t, ev.MinibusID, e.nextEventID()))
	}
}

func (e *Engine) handlePassengerAppear(ev *PassengerAppearEvent) {
	if _, exists := e.passengers[ev.PassengerID]; exists {
		return // already materialized: idempotent per spec §4.6
	}
	spec, ok := e.passengerSpecs[ev.PassengerID]
	if !ok {
		e.fail(&DataIntegrityError{Entity: string(ev.PassengerID), Reason: "passenger appear event with no backing spec"})
		return
	}
	maxWait := spec.MaxWait
	if maxWait <= 0 {
		maxWait = e.cfg.MaxWaitingTime
	}
	p, err := NewPassenger(spec.ID, spec.Origin, spec.Destination, spec.AppearTime, maxWait)
	if err != nil {
		e.fail(err)
		return
	}
	station, ok := e.stations[spec.Origin]
	if !ok {
		e.fail(UnknownStation(spec.Origin))
		return
	}
	e.passengers[p.ID] = p
	e.totalSeen++
	station.AddWaiting(p.ID)
	e.addPending(p.ID)
}

func (e *Engine) handleOptimizeCall(ev *OptimizeCallEvent) {
	if !e.cfg.EnableMinibus {
		return
	}

	pending := make([]PendingRequest, 0, len(e.pendingOrder))
	for _, pid := range e.pendingOrder {
		p := e.passengers[pid]
		if p == nil || !p.IsWaiting() {
			continue
		}
		pending = append(pending, PendingRequest{
			PassengerID: pid,
			Origin:      p.Origin,
			Destination: p.Destination,
			AppearTime:  p.AppearTime,
			WaitTime:    p.WaitTime(e.clock),
		})
	}

	vehicles := make([]VehicleSnapshot, 0, len(e.minibusOrder))
	oldArrivals := make(map[VehicleID]float64, len(e.minibusOrder))
	oldOK := make(map[VehicleID]bool, len(e.minibusOrder))
	for _, vid := range e.minibusOrder {
		mb := e.minibuses[vid]
		vehicles = append(vehicles, VehicleSnapshot{
			ID:        vid,
			Location:  mb.Location,
			Capacity:  mb.Capacity,
			Occupancy: mb.Occupancy(),
			Onboard:   mb.Onboard(),
			Plan:      mb.Plan(),
		})
		t, ok := mb.NextArrivalTime()
		oldArrivals[vid] = t
		oldOK[vid] = ok
	}

	plans, err := e.optimizer.Optimize(pending, vehicles, e.clock, e.oracle)
	if err != nil {
		e.fail(err)
		return
	}

	for _, vid := range e.minibusOrder {
		mb := e.minibuses[vid]
		newPlan, ok := plans[vid]
		if !ok {
			newPlan = nil
		}
		if err := mb.UpdatePlan(newPlan, e.clock, e.oracle); err != nil {
			e.fail(err)
			return
		}
		for _, stop := range mb.Plan() {
			if stop.Action != ActionPickup {
				continue
			}
			for _, pid := range stop.Passengers {
				p := e.passengers[pid]
				if p == nil || !p.IsWaiting() {
					continue
				}
				if err := p.Assign(vid, e.clock); err != nil {
					e.fail(err)
					return
				}
				e.removePending(pid)
			}
		}
		newT, newOK := mb.NextArrivalTime()
		if newOK && (!oldOK[vid] || newT != oldArrivals[vid]) {
			// A prior MinibusArrivalEvent for vid may still be sitting in
			// the queue (EventHeap has no removal primitive): handleMinibusArrival
			// re-derives the station from the live plan head at dispatch
			// time, so that stale duplicate is harmless when it fires.
			e.schedule(NewMinibusArrivalEvent(newT, vid, e.nextEventID()))
		}
	}

	if e.clock+e.cfg.OptimizationInterval < e.endTime {
		e.schedule(NewOptimizeCallEvent(e.clock+e.cfg.OptimizationInterval, e.nextEventID()))
	}
}

func (e *Engine) handleSimulationEnd(ev *SimulationEndEvent) {
	logrus.WithField("t", e.clock).Info("simulation end reached")
}

// sweepTimeouts abandons WAITING passengers whose wait has exceeded their
// per-passenger maximum (spec §4.6, "Passenger-timeout sweep"). A passenger
// already ASSIGNED to a vehicle is not swept (spec's explicit design
// decision: assigned passengers are the vehicle's responsibility until
// boarded).
func (e *Engine) sweepTimeouts() {
	snapshot := append([]PassengerID{}, e.pendingOrder...)
	for _, pid := range snapshot {
		p := e.passengers[pid]
		if p == nil || !p.IsWaiting() {
			continue
		}
		if !p.ExceededWait(e.clock) {
			continue
		}
		if err := p.Abandon(e.clock); err != nil {
			e.fail(err)
			return
		}
		if station, ok := e.stations[p.Origin]; ok {
			station.RemoveWaiting(pid)
		}
		e.removePending(pid)
	}
}

// fail latches the first fatal error encountered by a handler, since Event
// handler signatures (grounded on the teacher's Execute(sim) pattern) do not
// return an error themselves; Run checks e.fatal after every dispatch.
func (e *Engine) fail(err error) {
	if e.fatal == nil {
		e.fatal = err
	}
}

// Summary computes the end-of-run report (spec §7, "A run either completes
// with a summary").
func (e *Engine) Summary() *Summary {
	s := &Summary{
		TotalSeen:     e.totalSeen,
		BusServed:     make(map[VehicleID]int, len(e.busOrder)),
		MinibusServed: make(map[VehicleID]int, len(e.minibusOrder)),
	}
	for _, p := range e.passengers {
		switch p.Status {
		case PassengerArrived:
			s.Arrived++
		case PassengerAbandoned:
			s.Abandoned++
		case PassengerOnboard:
			s.StillOnboard++
		case PassengerWaiting, PassengerAssigned:
			s.StillWaiting++
		}
	}
	for _, id := range e.busOrder {
		s.BusServed[id] = e.buses[id].Served()
	}
	for _, id := range e.minibusOrder {
		s.MinibusServed[id] = e.minibuses[id].Served()
	}
	return s
}
