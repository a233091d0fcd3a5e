package sim

// This file declares the interface boundary to the "deliberately out of
// scope" external collaborators named in spec §1: CSV/JSON ingest for
// stations, bus schedules, and the travel-time tensor, plus the OD-matrix
// Poisson passenger generator. PassengerSource implementations live in
// generators.go. NewEngine takes already-loaded station ids, schedule rows
// and tensor as values; StationSource, BusScheduleSource and
// TravelTimeTensorSource have no implementation in this module, and
// cmd/fixtures.go loads the same data with plain functions.

// StationSource supplies the set of station ids at load time.
type StationSource interface {
	LoadStations() ([]StationID, error)
}

// BusScheduleRow is one row of the bus schedule feed (spec §6,
// "bus_schedule_source — delivers (bus_id, route_name, stop_sequence,
// station_id, arrival_time) rows").
type BusScheduleRow struct {
	BusID        VehicleID
	RouteName    string
	StopSequence int
	StationID    StationID
	ArrivalTime  float64
}

// BusScheduleSource supplies bus schedule rows, unordered across buses but
// required to be internally consistent per bus (stop_sequence strictly
// increasing).
type BusScheduleSource interface {
	LoadBusSchedule() ([]BusScheduleRow, error)
}

// TravelTimeTensorSource supplies the travel-time tensor (spec §6, "Travel
// time tensor format").
type TravelTimeTensorSource interface {
	LoadTravelTimeTensor() (*TravelTimeTensor, error)
}

// PassengerAppearSpec is one passenger's appearance event payload (spec §6,
// "Passenger-appear event payload").
type PassengerAppearSpec struct {
	ID          PassengerID
	Origin      StationID
	Destination StationID
	AppearTime  float64
	MaxWait     float64 // zero means "use config default"
}

// PassengerSource generates the full set of passenger appearances for a run
// (spec §1, "the OD-matrix Poisson passenger generator" is an external
// collaborator; spec §6's passenger_source_kind selects among
// implementations).
type PassengerSource interface {
	Generate(cfg *Config, stations []StationID, rng *PartitionedRNG) ([]PassengerAppearSpec, error)
}
