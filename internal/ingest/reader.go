// Package ingest normalises raw meter exports (CSV or JSON) into
// MeterReading batches. Malformed rows are counted and dropped, never fatal.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/capermax-01/energy-waste-engine/internal/models"
	"github.com/capermax-01/energy-waste-engine/internal/utils"
)

// columnAliases maps the header names meter exports actually use onto
// canonical field names.
var columnAliases = map[string]string{
	"timestamp":            "timestamp",
	"time":                 "timestamp",
	"device_id":            "device_id",
	"device":               "device_id",
	"device_category":      "device_category",
	"device_type":          "device_category",
	"category":             "device_category",
	"power_w":              "power_w",
	"power_watts":          "power_w",
	"power":                "power_w",
	"floor":                "floor",
	"zone":                 "zone",
	"occupancy_status":     "occupancy",
	"occupancy":            "occupancy",
	"occupancy_confidence": "occupancy_confidence",
}

// Result is one normalisation pass outcome: the usable readings plus counts
// of what was dropped on the way in.
type Result struct {
	Readings    []models.MeterReading
	RowsRead    int
	RowsDropped int
}

// Reader normalises meter exports.
type Reader struct {
	logger *slog.Logger
}

// NewReader constructs a Reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadCSV parses a headered CSV export. Header names match case-insensitively
// through the alias table; rows missing a timestamp, device id, or power
// value are dropped and counted.
func (r *Reader) ReadCSV(src io.Reader) (Result, error) {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, utils.NewAppError("ingest.ReadCSV", "read csv header", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := columnAliases[key]; ok {
			cols[canonical] = i
		}
	}
	for _, required := range []string{"timestamp", "device_id", "power_w"} {
		if _, ok := cols[required]; !ok {
			return Result{}, utils.NewAppError("ingest.ReadCSV", fmt.Sprintf("missing required column %s", required), nil)
		}
	}

	var res Result
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.RowsRead++
			res.RowsDropped++
			continue
		}
		res.RowsRead++

		reading, ok := r.rowToReading(row, cols)
		if !ok {
			res.RowsDropped++
			continue
		}
		res.Readings = append(res.Readings, reading)
	}

	if res.RowsDropped > 0 {
		r.logger.Warn("csv rows dropped during ingestion",
			slog.Int("dropped", res.RowsDropped), slog.Int("read", res.RowsRead))
	}
	return res, nil
}

func (r *Reader) rowToReading(row []string, cols map[string]int) (models.MeterReading, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := utils.ParseTimestamp(field("timestamp"))
	if err != nil {
		return models.MeterReading{}, false
	}
	deviceID := field("device_id")
	if deviceID == "" {
		return models.MeterReading{}, false
	}
	power, err := strconv.ParseFloat(field("power_w"), 64)
	if err != nil {
		return models.MeterReading{}, false
	}

	confidence := 0.0
	if raw := field("occupancy_confidence"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			confidence = v
		}
	}

	return models.MeterReading{
		Timestamp:      ts,
		DeviceID:       deviceID,
		DeviceCategory: strings.ToLower(field("device_category")),
		PowerW:         power,
		Location: models.Location{
			Floor: field("floor"),
			Zone:  field("zone"),
		},
		Occupancy:           models.ParseOccupancyStatus(field("occupancy")),
		OccupancyConfidence: confidence,
	}, true
}

// jsonReading is the wire shape of one JSON reading; timestamps arrive as
// strings in any supported layout.
type jsonReading struct {
	Timestamp           string  `json:"timestamp"`
	DeviceID            string  `json:"device_id"`
	DeviceCategory      string  `json:"device_category"`
	PowerW              float64 `json:"power_w"`
	Floor               string  `json:"floor"`
	Zone                string  `json:"zone"`
	Occupancy           string  `json:"occupancy_status"`
	OccupancyConfidence float64 `json:"occupancy_confidence"`
}

// ReadJSON parses a JSON array of readings.
func (r *Reader) ReadJSON(src io.Reader) (Result, error) {
	var raw []jsonReading
	if err := json.NewDecoder(src).Decode(&raw); err != nil {
		return Result{}, utils.NewAppError("ingest.ReadJSON", "decode json readings", err)
	}

	var res Result
	for _, jr := range raw {
		res.RowsRead++
		ts, err := utils.ParseTimestamp(jr.Timestamp)
		if err != nil || jr.DeviceID == "" {
			res.RowsDropped++
			continue
		}
		res.Readings = append(res.Readings, models.MeterReading{
			Timestamp:      ts,
			DeviceID:       jr.DeviceID,
			DeviceCategory: strings.ToLower(jr.DeviceCategory),
			PowerW:         jr.PowerW,
			Location: models.Location{
				Floor: jr.Floor,
				Zone:  jr.Zone,
			},
			Occupancy:           models.ParseOccupancyStatus(jr.Occupancy),
			OccupancyConfidence: jr.OccupancyConfidence,
		})
	}

	if res.RowsDropped > 0 {
		r.logger.Warn("json readings dropped during ingestion",
			slog.Int("dropped", res.RowsDropped), slog.Int("read", res.RowsRead))
	}
	return res, nil
}
