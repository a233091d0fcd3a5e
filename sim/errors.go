package sim

import "fmt"

// ConfigError signals a load-time configuration problem: a missing or
// invalid key, or an unknown station referenced by configuration (e.g. an
// initial minibus location). Fatal — the caller should abort the run.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Reason)
}

// DataIntegrityError signals a bug in upstream data: an unknown station id
// reaching a query, or a negative/otherwise malformed time value. Fatal —
// it indicates the data feeding the simulation is inconsistent with itself.
type DataIntegrityError struct {
	Entity string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error: %s: %s", e.Entity, e.Reason)
}

// UnknownStation is the DataIntegrityError raised by the travel-time oracle
// and station registry when a query references an id that was never
// interned at load time.
func UnknownStation(id StationID) error {
	return &DataIntegrityError{Entity: string(id), Reason: "unknown station"}
}

// TransitionError signals an illegal passenger status transition attempted
// by a caller. Per spec §4.2, these indicate a scheduler bug, not a data
// problem, and are fatal.
type TransitionError struct {
	PassengerID PassengerID
	From        PassengerStatus
	Attempted   string
	At          float64
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error: passenger %s: cannot %s from status %s at t=%.2f",
		e.PassengerID, e.Attempted, e.From, e.At)
}

// FatalError names the role of the error types above: every error the
// engine returns is fatal, and the CLI aborts the run on any of them (spec
// §7, "aborts on a fatal error with a message locating the offending event
// time and entity id"). Recoverable conditions never surface as a Go error
// at all — they are logged inline and the simulation continues. The
// interface only embeds error, so any error value satisfies it; it does not
// distinguish the types above from other errors.
type FatalError interface {
	error
}
