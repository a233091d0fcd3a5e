package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoStationTensor() *TravelTimeTensor {
	return &TravelTimeTensor{
		Data: [][][]float64{
			{{0, 0}, {100, 150}},
			{{100, 150}, {0, 0}},
		},
		Metadata: TravelTimeTensorMetadata{
			StationIndex:     map[StationID]int{"A": 0, "B": 1},
			TimeSlotDuration: 10, // minutes -> 600s per slot
			StartTimeAnchor:  0,
		},
	}
}

func TestTravelTimeOracle_SameStationIsZero(t *testing.T) {
	o, err := NewTravelTimeOracle(twoStationTensor())
	require.NoError(t, err)
	v, err := o.TravelTime("A", "A", 12345)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)
}

func TestTravelTimeOracle_SlotZeroAtTimeZero(t *testing.T) {
	o, err := NewTravelTimeOracle(twoStationTensor())
	require.NoError(t, err)
	v, err := o.TravelTime("A", "B", 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, v)
}

func TestTravelTimeOracle_ClipsToLastSlotPastCoverage(t *testing.T) {
	o, err := NewTravelTimeOracle(twoStationTensor())
	require.NoError(t, err)
	// slot duration is 600s, tensor has 2 slots -> covers [0, 1200)
	v, err := o.TravelTime("A", "B", 1_000_000)
	require.NoError(t, err)
	require.Equal(t, 150.0, v)
}

func TestTravelTimeOracle_UnknownStation(t *testing.T) {
	o, err := NewTravelTimeOracle(twoStationTensor())
	require.NoError(t, err)
	_, err = o.TravelTime("A", "Z", 0)
	require.Error(t, err)
}

func TestTravelTimeOracle_NegativeTimeIsError(t *testing.T) {
	o, err := NewTravelTimeOracle(twoStationTensor())
	require.NoError(t, err)
	_, err = o.TravelTime("A", "B", -1)
	require.Error(t, err)
}

func TestTravelTimeOracle_NonZeroDiagonalWarnsByDefault(t *testing.T) {
	bad := twoStationTensor()
	bad.Data[0][0][0] = 5
	o, err := NewTravelTimeOracle(bad)
	require.NoError(t, err, "non-strict mode logs and continues rather than failing load")
	require.NotNil(t, o)
}

func TestTravelTimeOracle_NonZeroDiagonalFailsInStrictMode(t *testing.T) {
	bad := twoStationTensor()
	bad.Data[0][0][0] = 5
	_, err := NewTravelTimeOracle(bad, WithStrictValidation(true))
	require.Error(t, err)
}

func TestTravelTimeOracle_CachingDoesNotChangeAnswer(t *testing.T) {
	cached, err := NewTravelTimeOracle(twoStationTensor(), WithCacheSize(16))
	require.NoError(t, err)
	uncached, err := NewTravelTimeOracle(twoStationTensor(), WithCacheSize(0))
	require.NoError(t, err)

	for _, at := range []float64{0, 300, 601, 5000} {
		a, err := cached.TravelTime("A", "B", at)
		require.NoError(t, err)
		b, err := uncached.TravelTime("A", "B", at)
		require.NoError(t, err)
		require.Equal(t, b, a)
	}
	// second pass exercises the cache hit path
	v, err := cached.TravelTime("A", "B", 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, v)
}
