package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseTestConfig() *Config {
	cfg := defaultConfig()
	cfg.DurationSeconds = 1000
	cfg.BusCapacity = 10
	cfg.MaxWaitingTime = 600
	return cfg
}

func busRouteRows(busID VehicleID, route []StationID, arrivals []float64) []BusScheduleRow {
	rows := make([]BusScheduleRow, len(route))
	for i := range route {
		rows[i] = BusScheduleRow{BusID: busID, RouteName: "r", StopSequence: i + 1, StationID: route[i], ArrivalTime: arrivals[i]}
	}
	return rows
}

// TestEngine_SingleBusDeliversPassengers implements spec §8 scenario 1 at
// the engine level: two passengers appearing before a bus reaches their
// common origin both board and are delivered to their destination.
func TestEngine_SingleBusDeliversPassengers(t *testing.T) {
	cfg := baseTestConfig()
	stations := []StationID{"A", "B", "C"}
	rows := busRouteRows("bus1", stations, []float64{100, 400, 700})
	specs := []PassengerAppearSpec{
		{ID: "P1", Origin: "A", Destination: "C", AppearTime: 0},
		{ID: "P2", Origin: "A", Destination: "C", AppearTime: 0},
	}

	eng, err := NewEngine(cfg, stations, threeStationTensor(), rows, specs, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	require.NoError(t, eng.Run())

	summary := eng.Summary()
	require.Equal(t, 2, summary.Arrived)
	require.Equal(t, 0, summary.Abandoned)
	require.Equal(t, 2, summary.BusServed["bus1"])
}

// TestEngine_BusCapacityRejectLeadsToAbandon implements spec §8 scenario 2
// at the engine level: a bus with capacity 1 can only take one of two
// waiting passengers; the other times out and is swept to ABANDONED.
func TestEngine_BusCapacityRejectLeadsToAbandon(t *testing.T) {
	cfg := baseTestConfig()
	cfg.BusCapacity = 1
	cfg.MaxWaitingTime = 50
	stations := []StationID{"A", "B", "C"}
	rows := busRouteRows("bus1", stations, []float64{100, 400, 700})
	specs := []PassengerAppearSpec{
		{ID: "P1", Origin: "A", Destination: "C", AppearTime: 0},
		{ID: "P2", Origin: "A", Destination: "C", AppearTime: 0},
	}

	eng, err := NewEngine(cfg, stations, threeStationTensor(), rows, specs, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	require.NoError(t, eng.Run())

	summary := eng.Summary()
	require.Equal(t, 1, summary.Arrived)
	require.Equal(t, 1, summary.Abandoned)
}

// TestEngine_DestinationOffRouteNeverBoards implements spec §8 scenario 3 at
// the engine level: a passenger whose destination is not reachable on any
// bus route is never boarded and is eventually abandoned.
func TestEngine_DestinationOffRouteNeverBoards(t *testing.T) {
	cfg := baseTestConfig()
	cfg.MaxWaitingTime = 50
	stations := []StationID{"A", "B", "C"}
	rows := busRouteRows("bus1", stations, []float64{100, 400, 700})
	specs := []PassengerAppearSpec{
		{ID: "P1", Origin: "A", Destination: "Z", AppearTime: 0}, // Z is never on any route
	}

	eng, err := NewEngine(cfg, stations, threeStationTensor(), rows, specs, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	require.NoError(t, eng.Run())

	summary := eng.Summary()
	require.Equal(t, 0, summary.Arrived)
	require.Equal(t, 1, summary.Abandoned)
}

func minibusTestConfig() *Config {
	cfg := baseTestConfig()
	cfg.EnableMinibus = true
	cfg.NumMinibuses = 1
	cfg.MinibusCapacity = 4
	cfg.MinibusInitialLocations = []string{"A"}
	cfg.OptimizerKind = "greedy_insertion"
	cfg.OptimizationInterval = 30
	return cfg
}

// TestEngine_GreedyInsertionDeliversPassengerByMinibus implements spec §8
// scenario 4: a pending request picked up by the optimizer's next tick is
// inserted into an idle minibus's plan and delivered.
func TestEngine_GreedyInsertionDeliversPassengerByMinibus(t *testing.T) {
	cfg := minibusTestConfig()
	stations := []StationID{"A", "B", "C"}
	specs := []PassengerAppearSpec{
		{ID: "P1", Origin: "B", Destination: "C", AppearTime: 0},
	}

	eng, err := NewEngine(cfg, stations, threeStationTensor(), nil, specs, GreedyInsertionOptimizer{})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	require.NoError(t, eng.Run())

	summary := eng.Summary()
	require.Equal(t, 1, summary.Arrived)
	require.Equal(t, 1, summary.MinibusServed["mb-1"])
}

// TestEngine_PendingPoolRemovedOnAssignment exercises the resolved pending
// pool semantics directly: once a passenger is referenced by a newly
// installed PICKUP stop, it is removed from the pending pool even though it
// has not yet boarded.
func TestEngine_PendingPoolRemovedOnAssignment(t *testing.T) {
	cfg := minibusTestConfig()
	stations := []StationID{"A", "B", "C"}
	eng, err := NewEngine(cfg, stations, threeStationTensor(), nil, nil, GreedyInsertionOptimizer{})
	require.NoError(t, err)
	require.NoError(t, eng.Init())

	p, err := NewPassenger("P1", "B", "C", 0, 600)
	require.NoError(t, err)
	eng.passengers["P1"] = p
	eng.stations["B"].AddWaiting("P1")
	eng.addPending("P1")
	require.True(t, eng.pendingSet["P1"])

	eng.clock = 30
	eng.handleOptimizeCall(&OptimizeCallEvent{})

	require.False(t, eng.pendingSet["P1"], "assigned passenger must leave the pending pool before boarding")
	require.Equal(t, PassengerAssigned, p.Status)
}

// TestEngine_StaleMinibusArrivalEventIsHarmless exercises two consecutive
// OPTIMIZE_CALL ticks that both change a minibus's plan before its first
// scheduled arrival fires: the first sends the idle minibus EN_ROUTE, the
// second changes the plan of the now EN_ROUTE minibus. The first tick's
// MinibusArrivalEvent is left sitting in the queue once the second tick
// schedules a new one for the same vehicle; the run must still complete
// without a fatal error and deliver both passengers.
func TestEngine_StaleMinibusArrivalEventIsHarmless(t *testing.T) {
	cfg := minibusTestConfig()
	stations := []StationID{"A", "B", "C"}
	eng, err := NewEngine(cfg, stations, threeStationTensor(), nil, nil, GreedyInsertionOptimizer{})
	require.NoError(t, err)
	require.NoError(t, eng.Init())

	p1, err := NewPassenger("P1", "B", "C", 0, 600)
	require.NoError(t, err)
	eng.passengers["P1"] = p1
	eng.stations["B"].AddWaiting("P1")
	eng.addPending("P1")

	eng.clock = 0
	eng.handleOptimizeCall(&OptimizeCallEvent{})
	require.Nil(t, eng.fatal)
	firstArrival, ok := eng.minibuses["mb-1"].NextArrivalTime()
	require.True(t, ok)
	require.Equal(t, float64(60), firstArrival)

	p2, err := NewPassenger("P2", "B", "A", 10, 600)
	require.NoError(t, err)
	eng.passengers["P2"] = p2
	eng.stations["B"].AddWaiting("P2")
	eng.addPending("P2")

	eng.clock = 10
	eng.handleOptimizeCall(&OptimizeCallEvent{})
	require.Nil(t, eng.fatal)
	secondArrival, ok := eng.minibuses["mb-1"].NextArrivalTime()
	require.True(t, ok)
	require.NotEqual(t, firstArrival, secondArrival, "the plan change must produce a new arrival time, leaving the first tick's event stale")

	require.NoError(t, eng.Run())
	require.Nil(t, eng.fatal)

	summary := eng.Summary()
	require.Equal(t, 2, summary.Arrived)
	require.Equal(t, 0, summary.Abandoned)
}

// TestEngine_NoMinibusOptimizeCallIsNoOp confirms the optimize handler is
// inert when minibuses are disabled, even if scheduled.
func TestEngine_NoMinibusOptimizeCallIsNoOp(t *testing.T) {
	cfg := baseTestConfig()
	stations := []StationID{"A", "B"}
	eng, err := NewEngine(cfg, stations, twoStationTensor(), nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Init())

	eng.clock = 0
	eng.handleOptimizeCall(&OptimizeCallEvent{})
	require.Nil(t, eng.fatal)
}

func TestEngine_RejectsNilConfig(t *testing.T) {
	_, err := NewEngine(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := baseTestConfig()
	cfg.OptimizerKind = "bogus"
	_, err := NewEngine(cfg, nil, twoStationTensor(), nil, nil, nil)
	require.Error(t, err)
}
