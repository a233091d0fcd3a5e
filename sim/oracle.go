package sim

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// TravelTimeTensorMetadata describes how a raw tensor maps to wall-clock
// time, per spec §6's "Travel-time tensor format".
type TravelTimeTensorMetadata struct {
	StationIndex     map[StationID]int // station id -> dense index
	TimeSlotDuration float64           // minutes
	StartTimeAnchor  float64           // recorded only; TravelTime does not read it (slot 0 begins at time 0)
}

// TravelTimeTensor is a dense 3-D array T[origin][dest][slot] of
// non-negative, finite seconds. T[i][i][*] must be 0.
type TravelTimeTensor struct {
	Data     [][][]float64
	Metadata TravelTimeTensorMetadata
}

// TravelTimeOracle answers station-to-station, time-of-day-indexed travel
// time queries (spec §4.1, component C1). It is a pure function over its
// loaded tensor: queries never mutate oracle state except the hot-loop LRU
// cache, whose presence or absence must never change the answer.
type TravelTimeOracle struct {
	tensor   *TravelTimeTensor
	slotSecs float64
	numSlots int
	strict   bool
	cache    *lruCache
}

// OracleOption configures NewTravelTimeOracle.
type OracleOption func(*TravelTimeOracle)

// WithCacheSize sets the hot-loop LRU cache capacity (0 disables caching).
func WithCacheSize(n int) OracleOption {
	return func(o *TravelTimeOracle) { o.cache = newLRUCache(n) }
}

// WithStrictValidation turns tensor validation warnings into a load-time
// fatal error (spec §4.1, "a configurable strict mode turns them into a
// load-time failure").
func WithStrictValidation(strict bool) OracleOption {
	return func(o *TravelTimeOracle) { o.strict = strict }
}

// NewTravelTimeOracle validates and wraps a tensor. The diagonal must be
// zero, every entry must be finite and non-negative, and the tensor's shape
// must match len(StationIndex) x len(StationIndex) x numSlots. Violations
// are logged; in strict mode they are returned as a ConfigError instead.
func NewTravelTimeOracle(tensor *TravelTimeTensor, opts ...OracleOption) (*TravelTimeOracle, error) {
	if tensor == nil {
		return nil, &ConfigError{Key: "travel_time_tensor", Reason: "tensor must not be nil"}
	}
	o := &TravelTimeOracle{
		tensor:   tensor,
		slotSecs: tensor.Metadata.TimeSlotDuration * 60,
		cache:    newLRUCache(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.slotSecs <= 0 {
		return nil, &ConfigError{Key: "travel_time_tensor.time_slot_duration", Reason: "must be positive"}
	}

	n := len(tensor.Metadata.StationIndex)
	if len(tensor.Data) != n {
		return o.rejectOrWarn("travel_time_tensor.shape", "origin dimension does not match station count")
	}
	numSlots := 0
	for i, row := range tensor.Data {
		if len(row) != n {
			return o.rejectOrWarn("travel_time_tensor.shape", "destination dimension does not match station count")
		}
		for j, slots := range row {
			if numSlots == 0 {
				numSlots = len(slots)
			} else if len(slots) != numSlots {
				return o.rejectOrWarn("travel_time_tensor.shape", "inconsistent number of time slots across station pairs")
			}
			if i == j {
				for _, v := range slots {
					if v != 0 {
						if err := o.reportViolation("travel_time_tensor.diagonal", "diagonal entry must be zero"); err != nil {
							return nil, err
						}
						break
					}
				}
			}
			if floats.HasNaN(slots) {
				if err := o.reportViolation("travel_time_tensor.values", "entry is NaN"); err != nil {
					return nil, err
				}
			}
			for _, v := range slots {
				if math.IsInf(v, 0) || v < 0 {
					if err := o.reportViolation("travel_time_tensor.values", "entry must be finite and non-negative"); err != nil {
						return nil, err
					}
					break
				}
			}
		}
	}
	o.numSlots = numSlots
	if o.numSlots == 0 {
		return nil, &ConfigError{Key: "travel_time_tensor", Reason: "tensor has zero time slots"}
	}
	return o, nil
}

func (o *TravelTimeOracle) rejectOrWarn(key, reason string) (*TravelTimeOracle, error) {
	if o.strict {
		return nil, &ConfigError{Key: key, Reason: reason}
	}
	logrus.WithField("key", key).Warn(reason)
	return o, nil
}

func (o *TravelTimeOracle) reportViolation(key, reason string) error {
	if o.strict {
		return &ConfigError{Key: key, Reason: reason}
	}
	logrus.WithField("key", key).Warn(reason)
	return nil
}

// TravelTime returns the travel time in seconds from origin to dest at
// at_time. Same-station queries return 0 without an index lookup. Unknown
// station ids return an UnknownStation DataIntegrityError. Negative at_time
// is a DataIntegrityError. Out-of-range at_time clips to the last slot —
// a deliberate degraded-operation policy, not an error (spec §4.1).
func (o *TravelTimeOracle) TravelTime(origin, dest StationID, atTime float64) (float64, error) {
	if origin == dest {
		return 0, nil
	}
	if atTime < 0 {
		return 0, &DataIntegrityError{Entity: "travel_time.at_time", Reason: "must be non-negative"}
	}
	oi, ok := o.tensor.Metadata.StationIndex[origin]
	if !ok {
		return 0, UnknownStation(origin)
	}
	di, ok := o.tensor.Metadata.StationIndex[dest]
	if !ok {
		return 0, UnknownStation(dest)
	}

	key := lruKey{origin: origin, dest: dest, atTime: atTime}
	if v, ok := o.cache.get(key); ok {
		return v, nil
	}

	slot := int(atTime / o.slotSecs)
	if slot >= o.numSlots {
		slot = o.numSlots - 1
	}
	if slot < 0 {
		slot = 0
	}
	v := o.tensor.Data[oi][di][slot]
	o.cache.put(key, v)
	return v, nil
}

// NumStations returns the number of interned stations.
func (o *TravelTimeOracle) NumStations() int { return len(o.tensor.Metadata.StationIndex) }

// NumSlots returns the number of time slots covered by the tensor.
func (o *TravelTimeOracle) NumSlots() int { return o.numSlots }

// CacheHitRate exposes the hot-loop cache's hit rate for diagnostics.
func (o *TravelTimeOracle) CacheHitRate() float64 { return o.cache.HitRate() }
