package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePassengerStore struct {
	byID map[PassengerID]*Passenger
}

func (f *fakePassengerStore) Get(id PassengerID) *Passenger { return f.byID[id] }

func newFakeStore(passengers ...*Passenger) *fakePassengerStore {
	s := &fakePassengerStore{byID: make(map[PassengerID]*Passenger)}
	for _, p := range passengers {
		s.byID[p.ID] = p
	}
	return s
}

// TestBus_SingleRouteTwoPassengers implements spec §8 scenario 1: route
// A->B->C->D at {0, 300, 720, 1200}, capacity 40, P1 A->C and P2 A->D both
// appear at t=0; both board at A, P1 arrives at C at t=720, P2 at D at t=1200.
func TestBus_SingleRouteTwoPassengers(t *testing.T) {
	route := []StationID{"A", "B", "C", "D"}
	schedule := []float64{0, 300, 720, 1200}
	bus, err := NewBus("bus-1", route, schedule, 40)
	require.NoError(t, err)

	p1, err := NewPassenger("P1", "A", "C", 0, 3600)
	require.NoError(t, err)
	p2, err := NewPassenger("P2", "A", "D", 0, 3600)
	require.NoError(t, err)
	store := newFakeStore(p1, p2)

	stA, _ := NewStation("A")
	stA.AddWaiting("P1")
	stA.AddWaiting("P2")

	// Arrival at A (t=0): both board.
	result, err := bus.Arrive(0, stA, store)
	require.NoError(t, err)
	require.ElementsMatch(t, []PassengerID{"P1", "P2"}, result.Boarded)
	require.True(t, p1.IsOnboard())
	require.True(t, p2.IsOnboard())

	// Arrival at B (t=300): nobody alights, nobody waiting.
	stB, _ := NewStation("B")
	_, err = bus.Arrive(300, stB, store)
	require.NoError(t, err)

	// Arrival at C (t=720): P1 alights.
	stC, _ := NewStation("C")
	result, err = bus.Arrive(720, stC, store)
	require.NoError(t, err)
	require.Equal(t, []PassengerID{"P1"}, result.Alighted)
	require.Equal(t, PassengerArrived, p1.Status)
	require.Equal(t, 0.0, p1.WaitTime(720))
	require.Equal(t, 720.0, *p1.ArrivalTime)

	// Arrival at D (t=1200): P2 alights, bus reaches terminus.
	stD, _ := NewStation("D")
	result, err = bus.Arrive(1200, stD, store)
	require.NoError(t, err)
	require.Equal(t, []PassengerID{"P2"}, result.Alighted)
	require.Equal(t, PassengerArrived, p2.Status)
	require.True(t, bus.IsTerminal())
	_, ok := bus.NextStation()
	require.False(t, ok)
}

// TestBus_CapacityReject implements spec §8 scenario 2: capacity 2, five
// waiting A->C passengers; exactly two board, three remain WAITING.
func TestBus_CapacityReject(t *testing.T) {
	route := []StationID{"A", "B", "C"}
	schedule := []float64{0, 300, 600}
	bus, err := NewBus("bus-1", route, schedule, 2)
	require.NoError(t, err)

	st, _ := NewStation("A")
	var passengers []*Passenger
	for i := 1; i <= 5; i++ {
		id := PassengerID(rune('0' + i))
		p, err := NewPassenger(id, "A", "C", 0, 3600)
		require.NoError(t, err)
		passengers = append(passengers, p)
		st.AddWaiting(id)
	}
	store := &fakePassengerStore{byID: make(map[PassengerID]*Passenger)}
	for _, p := range passengers {
		store.byID[p.ID] = p
	}

	result, err := bus.Arrive(0, st, store)
	require.NoError(t, err)
	require.Len(t, result.Boarded, 2)
	require.Equal(t, result.Boarded, []PassengerID{passengers[0].ID, passengers[1].ID}, "boards in arrival order")

	boarded := 0
	waiting := 0
	for _, p := range passengers {
		switch p.Status {
		case PassengerOnboard:
			boarded++
		case PassengerWaiting:
			waiting++
		}
	}
	require.Equal(t, 2, boarded)
	require.Equal(t, 3, waiting)
}

// TestBus_DestinationOffRouteReject implements spec §8 scenario 3: a waiting
// passenger whose destination is not on the route is never boarded.
func TestBus_DestinationOffRouteReject(t *testing.T) {
	route := []StationID{"A", "B", "C"}
	schedule := []float64{0, 300, 600}
	bus, err := NewBus("bus-1", route, schedule, 40)
	require.NoError(t, err)

	p, err := NewPassenger("P1", "A", "E", 0, 3600)
	require.NoError(t, err)
	st, _ := NewStation("A")
	st.AddWaiting("P1")
	store := newFakeStore(p)

	result, err := bus.Arrive(0, st, store)
	require.NoError(t, err)
	require.Empty(t, result.Boarded)
	require.True(t, p.IsWaiting())
	require.True(t, st.HasWaiting("P1"))
}

func TestBus_ArriveRejectsWrongStation(t *testing.T) {
	route := []StationID{"A", "B"}
	schedule := []float64{0, 300}
	bus, err := NewBus("bus-1", route, schedule, 10)
	require.NoError(t, err)

	wrong, _ := NewStation("Z")
	_, err = bus.Arrive(0, wrong, newFakeStore())
	require.Error(t, err)
}
