package sim

import "fmt"

// StationID identifies a station. Stable across a run, interned to a dense
// index by the TravelTimeOracle at load time.
type StationID string

// PassengerID identifies a passenger. Unique for the lifetime of a run.
type PassengerID string

// VehicleID identifies a bus or minibus. The two id spaces are disjoint by
// convention (callers should prefix, e.g. "bus-1" / "mb-1") but the engine
// does not enforce this; it keeps buses and minibuses in separate arenas.
type VehicleID string

// EventID is a monotonically increasing sequence number assigned at
// schedule time. It is the third ordering key (after time and priority) that
// makes the event queue's tie-break fully deterministic (spec §5).
type EventID uint64

func (s StationID) String() string   { return string(s) }
func (p PassengerID) String() string { return string(p) }
func (v VehicleID) String() string   { return string(v) }

// fmtID is a small helper that quotes an id regardless of its underlying
// string-kind type. No caller in the package uses it at present.
func fmtID(id fmt.Stringer) string {
	return fmt.Sprintf("%q", id.String())
}
