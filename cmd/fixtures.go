package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/jingren-tang/transit-sim/sim"
)

// The structures below are the on-disk YAML shapes for the external loader
// boundary named in spec §1 ("deliberately out of scope: CSV/JSON ingest for
// stations, bus schedules, and the travel-time tensor"). A YAML realization
// is one concrete implementation of that boundary. The loaders below are
// plain functions that hand their results to sim.NewEngine as values; they
// do not implement the StationSource/BusScheduleSource/TravelTimeTensorSource
// interfaces in sim/sources.go.

type stationsFile struct {
	Stations []string `yaml:"stations"`
}

type busScheduleRowFile struct {
	BusID        string  `yaml:"bus_id"`
	RouteName    string  `yaml:"route_name"`
	StopSequence int     `yaml:"stop_sequence"`
	StationID    string  `yaml:"station_id"`
	ArrivalTime  float64 `yaml:"arrival_time"`
}

type busScheduleFile struct {
	Rows []busScheduleRowFile `yaml:"rows"`
}

type tensorFile struct {
	Data             [][][]float64  `yaml:"data"`
	StationIndex     map[string]int `yaml:"station_index"`
	TimeSlotDuration float64        `yaml:"time_slot_duration"`
	StartTimeAnchor  float64        `yaml:"start_time_anchor"`
}

type passengerFile struct {
	ID          string  `yaml:"id"`
	Origin      string  `yaml:"origin"`
	Destination string  `yaml:"destination"`
	AppearTime  float64 `yaml:"appear_time"`
	MaxWait     float64 `yaml:"max_wait,omitempty"`
}

type passengersFile struct {
	Passengers []passengerFile `yaml:"passengers"`
}

func loadYAML(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadFixtures reads the station, bus-schedule, and travel-time-tensor YAML
// files named by config (spec §6's stations_source / bus_schedule_source /
// travel_time_tensor_source locators).
func loadFixtures(cfg *sim.Config) ([]sim.StationID, []sim.BusScheduleRow, *sim.TravelTimeTensor, error) {
	var sf stationsFile
	if err := loadYAML(cfg.StationsSource, &sf); err != nil {
		return nil, nil, nil, err
	}
	stations := make([]sim.StationID, len(sf.Stations))
	for i, s := range sf.Stations {
		stations[i] = sim.StationID(s)
	}

	var bf busScheduleFile
	if err := loadYAML(cfg.BusScheduleSource, &bf); err != nil {
		return nil, nil, nil, err
	}
	rows := make([]sim.BusScheduleRow, len(bf.Rows))
	for i, r := range bf.Rows {
		rows[i] = sim.BusScheduleRow{
			BusID:        sim.VehicleID(r.BusID),
			RouteName:    r.RouteName,
			StopSequence: r.StopSequence,
			StationID:    sim.StationID(r.StationID),
			ArrivalTime:  r.ArrivalTime,
		}
	}

	var tf tensorFile
	if err := loadYAML(cfg.TravelTimeTensorSource, &tf); err != nil {
		return nil, nil, nil, err
	}
	index := make(map[sim.StationID]int, len(tf.StationIndex))
	for id, idx := range tf.StationIndex {
		index[sim.StationID(id)] = idx
	}
	tensor := &sim.TravelTimeTensor{
		Data: tf.Data,
		Metadata: sim.TravelTimeTensorMetadata{
			StationIndex:     index,
			TimeSlotDuration: tf.TimeSlotDuration,
			StartTimeAnchor:  tf.StartTimeAnchor,
		},
	}

	return stations, rows, tensor, nil
}

// loadExplicitPassengers reads the passenger_list_source YAML file (spec
// §6's "explicit_list" passenger_source_kind).
func loadExplicitPassengers(cfg *sim.Config) ([]sim.PassengerAppearSpec, error) {
	if cfg.PassengerListSource == "" {
		return nil, nil
	}
	var pf passengersFile
	if err := loadYAML(cfg.PassengerListSource, &pf); err != nil {
		return nil, err
	}
	out := make([]sim.PassengerAppearSpec, len(pf.Passengers))
	for i, p := range pf.Passengers {
		out[i] = sim.PassengerAppearSpec{
			ID:          sim.PassengerID(p.ID),
			Origin:      sim.StationID(p.Origin),
			Destination: sim.StationID(p.Destination),
			AppearTime:  p.AppearTime,
			MaxWait:     p.MaxWait,
		}
	}
	return out, nil
}

var (
	fixturesDir      string
	fixturesStations int
)

var genFixturesCmd = &cobra.Command{
	Use:   "gen-fixtures",
	Short: "Write a small synthetic station graph, bus schedule, and travel-time tensor to disk",
	Run: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(fixturesDir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "gen-fixtures:", err)
			os.Exit(1)
		}
		if err := writeFixtures(fixturesDir, fixturesStations); err != nil {
			fmt.Fprintln(os.Stderr, "gen-fixtures:", err)
			os.Exit(1)
		}
		fmt.Println("wrote fixtures to", fixturesDir)
	},
}

func init() {
	genFixturesCmd.Flags().StringVar(&fixturesDir, "dir", "./fixtures", "Output directory for generated fixtures")
	genFixturesCmd.Flags().IntVar(&fixturesStations, "stations", 4, "Number of synthetic stations to generate")
}

// writeFixtures emits a ring-route station graph: one bus running the full
// ring and a flat, distance-proportional travel-time tensor with a single
// time slot, using google/uuid for station ids so each generated fixture
// set is self-describing and collision-free across runs.
func writeFixtures(dir string, n int) error {
	if n < 2 {
		return fmt.Errorf("need at least 2 stations, got %d", n)
	}
	stationIDs := make([]string, n)
	for i := range stationIDs {
		stationIDs[i] = "stn-" + uuid.New().String()[:8]
	}

	sf := stationsFile{Stations: stationIDs}
	if err := writeYAML(filepath.Join(dir, "stations.yaml"), sf); err != nil {
		return err
	}

	const legSeconds = 300.0
	busID := "bus-" + uuid.New().String()[:8]
	var rows []busScheduleRowFile
	for i, id := range stationIDs {
		rows = append(rows, busScheduleRowFile{
			BusID:        busID,
			RouteName:    "ring",
			StopSequence: i + 1,
			StationID:    id,
			ArrivalTime:  float64(i) * legSeconds,
		})
	}
	if err := writeYAML(filepath.Join(dir, "bus_schedule.yaml"), busScheduleFile{Rows: rows}); err != nil {
		return err
	}

	index := make(map[string]int, n)
	for i, id := range stationIDs {
		index[id] = i
	}
	data := make([][][]float64, n)
	for i := range data {
		data[i] = make([][]float64, n)
		for j := range data[i] {
			d := 0.0
			if i != j {
				d = legSeconds * float64(ringDistance(i, j, n))
			}
			data[i][j] = []float64{d}
		}
	}
	tf := tensorFile{Data: data, StationIndex: index, TimeSlotDuration: 1440, StartTimeAnchor: 0}
	if err := writeYAML(filepath.Join(dir, "travel_time_tensor.yaml"), tf); err != nil {
		return err
	}

	pf := passengersFile{Passengers: []passengerFile{
		{ID: "p-" + uuid.New().String()[:8], Origin: stationIDs[0], Destination: stationIDs[n/2], AppearTime: 0},
	}}
	return writeYAML(filepath.Join(dir, "passengers.yaml"), pf)
}

func ringDistance(i, j, n int) int {
	d := i - j
	if d < 0 {
		d = -d
	}
	if n-d < d {
		return n - d
	}
	return d
}

func writeYAML(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	defer enc.Close()
	return enc.Encode(v)
}
