package models

import "time"

// OccupancyStatus enumerates the occupancy states attached to a reading.
// Unknown is a first-class state: readings without a usable occupancy label
// are excluded from unoccupied-specific waste rules rather than assumed empty.
type OccupancyStatus string

const (
	OccupancyOccupied   OccupancyStatus = "occupied"
	OccupancyUnoccupied OccupancyStatus = "unoccupied"
	OccupancyUnknown    OccupancyStatus = "unknown"
)

// ParseOccupancyStatus normalises free-form occupancy labels from upstream
// ingestion. Anything unrecognised maps to Unknown.
func ParseOccupancyStatus(value string) OccupancyStatus {
	switch value {
	case "occupied", "Occupied", "OCCUPIED":
		return OccupancyOccupied
	case "unoccupied", "Unoccupied", "UNOCCUPIED":
		return OccupancyUnoccupied
	default:
		return OccupancyUnknown
	}
}

// Location identifies where a meter lives inside the building.
type Location struct {
	Floor string `json:"floor"`
	Zone  string `json:"zone"`
}

// String renders the location the way alerts display it.
func (l Location) String() string {
	floor := l.Floor
	if floor == "" {
		floor = "Unknown Floor"
	}
	zone := l.Zone
	if zone == "" {
		zone = "Unknown Zone"
	}
	return floor + ", " + zone
}

// MeterReading is one normalised power sample supplied by the ingestion
// collaborator. Readings are immutable; the engine never mutates them.
type MeterReading struct {
	Timestamp           time.Time       `json:"timestamp"`
	DeviceID            string          `json:"device_id"`
	DeviceCategory      string          `json:"device_category"`
	PowerW              float64         `json:"power_w"`
	Location            Location        `json:"location"`
	Occupancy           OccupancyStatus `json:"occupancy_status"`
	OccupancyConfidence float64         `json:"occupancy_confidence"`

	// DisparityW carries an optional precomputed power-disparity signal from
	// the upstream variance model. Zero when the producer did not supply one.
	DisparityW float64 `json:"power_disparity_w,omitempty"`
}

// WasteCategory is the mutually exclusive classification assigned to a
// reading. Exactly one category applies per record.
type WasteCategory string

const (
	WasteNormal          WasteCategory = "normal"
	WastePhantomLoad     WasteCategory = "phantom_load"
	WasteUnoccupiedUsage WasteCategory = "unoccupied_usage"
	WasteAfterHours      WasteCategory = "after_hours"
	WasteInefficient     WasteCategory = "inefficient_usage"
)

// ClassifiedRecord pairs a reading with its waste classification. Transient:
// records live for one analysis pass and are then rolled into issues/alerts.
type ClassifiedRecord struct {
	Reading           MeterReading
	Category          WasteCategory
	ExpectedBaselineW float64
	ExcessPowerW      float64
	WastedEnergyKWh   float64
}

// DeviceBaseline is the learned expected power profile for one device over
// an analysis window. Superseded wholesale on every relearn, never patched.
type DeviceBaseline struct {
	DeviceID string
	Category string
	Location string

	AvgPowerW float64
	MaxPowerW float64
	MinPowerW float64

	// OccupiedBaselineW falls back to the all-sample mean when no occupied
	// samples exist. UnoccupiedBaselineW is non-zero only for categories with
	// a legitimate idle draw (hvac, lighting); the after-hours baseline
	// mirrors it.
	OccupiedBaselineW   float64
	UnoccupiedBaselineW float64
	AfterHoursBaselineW float64

	HourlyMeanW [24]float64
	HourlyStdW  [24]float64

	Samples int
}
