package engine

import (
	"log/slog"
	"math"
	"strings"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// idleDrawCategories are the device categories with a legitimate non-zero
// unoccupied draw. Every other category gets a fixed zero unoccupied
// baseline.
var idleDrawCategories = map[string]struct{}{
	"hvac":     {},
	"lighting": {},
}

// BaselineLearner derives per-device expected power profiles from a reading
// window.
type BaselineLearner struct {
	logger *slog.Logger
}

// NewBaselineLearner constructs a learner.
func NewBaselineLearner(logger *slog.Logger) *BaselineLearner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaselineLearner{logger: logger}
}

type baselineAccumulator struct {
	category string
	location models.Location

	sum, min, max float64
	count         int

	occupiedSum     float64
	occupiedCount   int
	unoccupiedSum   float64
	unoccupiedCount int

	hourlySum   [24]float64
	hourlySumSq [24]float64
	hourlyCount [24]int
}

// Learn computes a fresh baseline set for every device present in the
// window. Devices with zero readings are simply absent from the result;
// readings without occupancy labels count toward the overall mean but are
// excluded from occupied/unoccupied-specific means.
func (l *BaselineLearner) Learn(readings []models.MeterReading) map[string]models.DeviceBaseline {
	accs := make(map[string]*baselineAccumulator)

	for _, r := range readings {
		acc, ok := accs[r.DeviceID]
		if !ok {
			acc = &baselineAccumulator{
				category: r.DeviceCategory,
				location: r.Location,
				min:      math.MaxFloat64,
			}
			accs[r.DeviceID] = acc
		}

		acc.sum += r.PowerW
		acc.count++
		if r.PowerW < acc.min {
			acc.min = r.PowerW
		}
		if r.PowerW > acc.max {
			acc.max = r.PowerW
		}

		switch r.Occupancy {
		case models.OccupancyOccupied:
			acc.occupiedSum += r.PowerW
			acc.occupiedCount++
		case models.OccupancyUnoccupied:
			acc.unoccupiedSum += r.PowerW
			acc.unoccupiedCount++
		}

		hour := r.Timestamp.Hour()
		acc.hourlySum[hour] += r.PowerW
		acc.hourlySumSq[hour] += r.PowerW * r.PowerW
		acc.hourlyCount[hour]++
	}

	baselines := make(map[string]models.DeviceBaseline, len(accs))
	for deviceID, acc := range accs {
		b := models.DeviceBaseline{
			DeviceID:  deviceID,
			Category:  acc.category,
			Location:  acc.location.String(),
			AvgPowerW: acc.sum / float64(acc.count),
			MaxPowerW: acc.max,
			MinPowerW: acc.min,
			Samples:   acc.count,
		}

		if acc.occupiedCount > 0 {
			b.OccupiedBaselineW = acc.occupiedSum / float64(acc.occupiedCount)
		} else {
			b.OccupiedBaselineW = b.AvgPowerW
		}

		if _, idle := idleDrawCategories[strings.ToLower(acc.category)]; idle && acc.unoccupiedCount > 0 {
			b.UnoccupiedBaselineW = acc.unoccupiedSum / float64(acc.unoccupiedCount)
		}
		b.AfterHoursBaselineW = b.UnoccupiedBaselineW

		for h := 0; h < 24; h++ {
			if acc.hourlyCount[h] == 0 {
				continue
			}
			n := float64(acc.hourlyCount[h])
			mean := acc.hourlySum[h] / n
			b.HourlyMeanW[h] = mean
			variance := acc.hourlySumSq[h]/n - mean*mean
			if variance > 0 {
				b.HourlyStdW[h] = math.Sqrt(variance)
			}
		}

		baselines[deviceID] = b
	}

	l.logger.Debug("baselines learned", slog.Int("devices", len(baselines)), slog.Int("readings", len(readings)))
	return baselines
}
