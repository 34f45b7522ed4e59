package ingest

import (
	"sort"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
	"github.com/capermax-01/energy-waste-engine/internal/utils"
)

// Gap is one missing stretch in a device's reporting timeline.
type Gap struct {
	DeviceID string    `json:"device_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Minutes  float64   `json:"minutes"`
}

// DetectGaps finds per-device reporting gaps longer than maxGap. Gaps flag
// data-quality problems for operators; the analysis itself runs on whatever
// readings exist.
func DetectGaps(readings []models.MeterReading, maxGap time.Duration) []Gap {
	byDevice := make(map[string][]time.Time)
	for _, r := range readings {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r.Timestamp)
	}

	devices := make([]string, 0, len(byDevice))
	for id := range byDevice {
		devices = append(devices, id)
	}
	sort.Strings(devices)

	var gaps []Gap
	for _, id := range devices {
		stamps := byDevice[id]
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
		for i := 1; i < len(stamps); i++ {
			if stamps[i].Sub(stamps[i-1]) > maxGap {
				gaps = append(gaps, Gap{
					DeviceID: id,
					From:     stamps[i-1],
					To:       stamps[i],
					Minutes:  utils.DurationMinutes(stamps[i-1], stamps[i]),
				})
			}
		}
	}
	return gaps
}
