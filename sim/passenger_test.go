package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPassenger_RejectsSameOriginDestination(t *testing.T) {
	_, err := NewPassenger("p1", "A", "A", 0, 60)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewPassenger_RejectsNegativeAppearTime(t *testing.T) {
	_, err := NewPassenger("p1", "A", "B", -1, 60)
	require.Error(t, err)
}

func TestNewPassenger_RejectsNonPositiveMaxWait(t *testing.T) {
	_, err := NewPassenger("p1", "A", "B", 0, 0)
	require.Error(t, err)
}

func TestPassengerLifecycle_DirectBoard(t *testing.T) {
	p, err := NewPassenger("p1", "A", "B", 0, 600)
	require.NoError(t, err)
	require.True(t, p.IsWaiting())

	require.NoError(t, p.Board(10))
	require.True(t, p.IsOnboard())
	require.Equal(t, 10.0, *p.PickupTime)

	require.NoError(t, p.Arrive(100))
	require.True(t, p.IsTerminal())
	require.Equal(t, 90.0, *p.TravelTime())
	require.Equal(t, 100.0, *p.TotalTime())
}

func TestPassengerLifecycle_AssignThenBoard(t *testing.T) {
	p, err := NewPassenger("p1", "A", "B", 0, 600)
	require.NoError(t, err)

	require.NoError(t, p.Assign("mb-1", 5))
	require.Equal(t, PassengerAssigned, p.Status)

	require.NoError(t, p.Board(20))
	require.Equal(t, PassengerOnboard, p.Status)
}

func TestPassenger_IllegalTransitionIsError(t *testing.T) {
	p, err := NewPassenger("p1", "A", "B", 0, 600)
	require.NoError(t, err)

	err = p.Arrive(10) // not onboard yet
	require.Error(t, err)
	var transErr *TransitionError
	require.ErrorAs(t, err, &transErr)
	require.Equal(t, PassengerID("p1"), transErr.PassengerID)
}

func TestPassenger_AbandonFromWaitingOrAssigned(t *testing.T) {
	p, err := NewPassenger("p1", "A", "B", 0, 10)
	require.NoError(t, err)
	require.NoError(t, p.Abandon(20))
	require.Equal(t, PassengerAbandoned, p.Status)
	require.True(t, p.IsTerminal())

	q, err := NewPassenger("p2", "A", "B", 0, 10)
	require.NoError(t, err)
	require.NoError(t, q.Assign("mb-1", 5))
	require.NoError(t, q.Abandon(20))
	require.Equal(t, PassengerAbandoned, q.Status)
	require.True(t, q.IsTerminal())
}

func TestPassenger_ExceededWaitOnlyWhenWaiting(t *testing.T) {
	p, err := NewPassenger("p1", "A", "B", 0, 10)
	require.NoError(t, err)
	require.False(t, p.ExceededWait(5))
	require.True(t, p.ExceededWait(11))

	require.NoError(t, p.Board(5))
	require.False(t, p.ExceededWait(1000), "boarded passengers are never swept for timeout")
}
