package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

func TestReadCSVWithAliases(t *testing.T) {
	csv := strings.Join([]string{
		"Timestamp,Device_ID,Device_Type,Power_Watts,Floor,Zone,Occupancy_Status,Occupancy_Confidence",
		"2026-03-02 14:00:00,HVAC_3,HVAC,400,Floor 2,East Wing,Unoccupied,0.9",
		"2026-03-02 15:00:00,HVAC_3,HVAC,not-a-number,Floor 2,East Wing,Unoccupied,0.9",
		"bad-timestamp,HVAC_3,HVAC,400,Floor 2,East Wing,Unoccupied,0.9",
		"2026-03-02T16:00:00Z,PC_1,computer,90,,,occupied,",
	}, "\n")

	r := NewReader(nil)
	res, err := r.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowsRead != 4 || res.RowsDropped != 2 {
		t.Fatalf("expected 4 read / 2 dropped, got %d/%d", res.RowsRead, res.RowsDropped)
	}
	if len(res.Readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(res.Readings))
	}

	first := res.Readings[0]
	if first.DeviceID != "HVAC_3" || first.DeviceCategory != "hvac" {
		t.Fatalf("unexpected first reading: %+v", first)
	}
	if first.PowerW != 400 || first.Occupancy != models.OccupancyUnoccupied {
		t.Fatalf("unexpected first reading values: %+v", first)
	}
	if first.Location.Floor != "Floor 2" || first.Location.Zone != "East Wing" {
		t.Fatalf("unexpected location: %+v", first.Location)
	}
	if first.OccupancyConfidence != 0.9 {
		t.Fatalf("unexpected confidence: %f", first.OccupancyConfidence)
	}

	second := res.Readings[1]
	if second.Occupancy != models.OccupancyOccupied {
		t.Fatalf("expected occupied, got %s", second.Occupancy)
	}
	if second.Location.Floor != "" {
		t.Fatalf("empty floor should stay empty, got %q", second.Location.Floor)
	}
}

func TestReadCSVMissingRequiredColumn(t *testing.T) {
	r := NewReader(nil)
	_, err := r.ReadCSV(strings.NewReader("timestamp,device_id\n2026-03-02 14:00:00,HVAC_3"))
	if err == nil {
		t.Fatal("expected error for missing power column")
	}
}

func TestReadJSON(t *testing.T) {
	body := `[
		{"timestamp":"2026-03-02T14:00:00Z","device_id":"HVAC_3","device_category":"HVAC","power_w":400,"floor":"Floor 2","zone":"East Wing","occupancy_status":"unoccupied","occupancy_confidence":0.85},
		{"timestamp":"","device_id":"HVAC_3","power_w":400},
		{"timestamp":"2026-03-02T15:00:00Z","device_id":"","power_w":10}
	]`

	r := NewReader(nil)
	res, err := r.ReadJSON(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowsRead != 3 || res.RowsDropped != 2 {
		t.Fatalf("expected 3 read / 2 dropped, got %d/%d", res.RowsRead, res.RowsDropped)
	}
	got := res.Readings[0]
	if got.DeviceCategory != "hvac" {
		t.Fatalf("category should be normalised to lower case, got %q", got.DeviceCategory)
	}
	if got.Occupancy != models.OccupancyUnoccupied {
		t.Fatalf("unexpected occupancy %s", got.Occupancy)
	}
}

func TestReadJSONMalformed(t *testing.T) {
	r := NewReader(nil)
	if _, err := r.ReadJSON(strings.NewReader(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array body")
	}
}

func TestDetectGaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	readings := []models.MeterReading{
		{DeviceID: "HVAC_1", Timestamp: base},
		{DeviceID: "HVAC_1", Timestamp: base.Add(time.Hour)},
		{DeviceID: "HVAC_1", Timestamp: base.Add(6 * time.Hour)},
		{DeviceID: "PC_1", Timestamp: base},
		{DeviceID: "PC_1", Timestamp: base.Add(time.Hour)},
	}

	gaps := DetectGaps(readings, 2*time.Hour)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	g := gaps[0]
	if g.DeviceID != "HVAC_1" {
		t.Fatalf("unexpected gap device %s", g.DeviceID)
	}
	if g.Minutes != 300 {
		t.Fatalf("expected 300 minute gap, got %f", g.Minutes)
	}
}
