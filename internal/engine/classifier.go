package engine

import (
	"fmt"
	"strings"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// ThresholdSource supplies the current adaptive thresholds for a device.
type ThresholdSource interface {
	ProfileFor(deviceID, category string) models.ThresholdProfile
}

// exemptCategories are always-on-by-design equipment; readings from these
// classify as normal regardless of power.
var exemptCategories = map[string]struct{}{
	"fridge":   {},
	"freezer":  {},
	"server":   {},
	"security": {},
	"router":   {},
}

// phantomThresholdW is the per-category standby threshold. Plug loads count
// as phantom while unoccupied and at or below 3x this value; categories with
// a legitimate idle draw (hvac, lighting) use the threshold directly, since
// anything above it is running, not in standby.
var phantomThresholdW = map[string]float64{
	"hvac":     200,
	"lighting": 50,
	"computer": 20,
	"printer":  15,
	"default":  10,
}

// ClassifierConfig holds the fixed business window.
type ClassifierConfig struct {
	BusinessStartHour int
	BusinessEndHour   int
}

// DefaultClassifierConfig is the 09:00-18:00 office window.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{BusinessStartHour: 9, BusinessEndHour: 18}
}

// Validate rejects inverted or out-of-range business windows.
func (c ClassifierConfig) Validate() error {
	if c.BusinessStartHour < 0 || c.BusinessStartHour > 23 ||
		c.BusinessEndHour < 0 || c.BusinessEndHour > 24 {
		return fmt.Errorf("business hours out of range: %d-%d", c.BusinessStartHour, c.BusinessEndHour)
	}
	if c.BusinessStartHour >= c.BusinessEndHour {
		return fmt.Errorf("business window inverted: %d-%d", c.BusinessStartHour, c.BusinessEndHour)
	}
	return nil
}

// ruleMatch is the tagged result of one classification rule.
type ruleMatch struct {
	category          models.WasteCategory
	expectedBaselineW float64
	excessW           float64
}

// classificationRule is one predicate in the fixed-priority chain. A nil
// return means "no match, try the next rule".
type classificationRule struct {
	name  string
	apply func(r models.MeterReading, b models.DeviceBaseline, haveBaseline bool, p models.ThresholdProfile, cfg ClassifierConfig) *ruleMatch
}

// Rules in priority order. First match wins, so a record is never counted
// under two categories and total classified waste stays within total
// consumption.
var classificationRules = []classificationRule{
	{name: "phantom_load", apply: matchPhantomLoad},
	{name: "unoccupied_usage", apply: matchUnoccupiedUsage},
	{name: "after_hours", apply: matchAfterHours},
}

func matchPhantomLoad(r models.MeterReading, _ models.DeviceBaseline, _ bool, _ models.ThresholdProfile, _ ClassifierConfig) *ruleMatch {
	if r.Occupancy != models.OccupancyUnoccupied {
		return nil
	}
	category := strings.ToLower(r.DeviceCategory)
	threshold, ok := phantomThresholdW[category]
	if !ok {
		threshold = phantomThresholdW["default"]
	}
	ceiling := threshold * 3
	if _, idle := idleDrawCategories[category]; idle {
		ceiling = threshold
	}
	if r.PowerW > 0 && r.PowerW <= ceiling {
		return &ruleMatch{
			category:          models.WastePhantomLoad,
			expectedBaselineW: 0,
			excessW:           r.PowerW,
		}
	}
	return nil
}

func matchUnoccupiedUsage(r models.MeterReading, b models.DeviceBaseline, haveBaseline bool, p models.ThresholdProfile, _ ClassifierConfig) *ruleMatch {
	if !haveBaseline || r.Occupancy != models.OccupancyUnoccupied {
		return nil
	}
	margin := 50.0
	if _, idle := idleDrawCategories[strings.ToLower(r.DeviceCategory)]; idle {
		margin = 100.0
	}
	if margin < p.MinDeviationW {
		margin = p.MinDeviationW
	}
	if r.PowerW > b.UnoccupiedBaselineW+margin {
		excess := r.PowerW - b.UnoccupiedBaselineW
		if excess < 0 {
			excess = 0
		}
		return &ruleMatch{
			category:          models.WasteUnoccupiedUsage,
			expectedBaselineW: b.UnoccupiedBaselineW,
			excessW:           excess,
		}
	}
	return nil
}

func matchAfterHours(r models.MeterReading, b models.DeviceBaseline, haveBaseline bool, p models.ThresholdProfile, cfg ClassifierConfig) *ruleMatch {
	if !haveBaseline || r.Occupancy == models.OccupancyOccupied {
		return nil
	}
	hour := r.Timestamp.Hour()
	if hour >= cfg.BusinessStartHour && hour < cfg.BusinessEndHour {
		return nil
	}
	margin := 100.0
	if margin < p.MinDeviationW {
		margin = p.MinDeviationW
	}
	if r.PowerW > b.AfterHoursBaselineW+margin {
		excess := r.PowerW - b.AfterHoursBaselineW
		if excess < 0 {
			excess = 0
		}
		return &ruleMatch{
			category:          models.WasteAfterHours,
			expectedBaselineW: b.AfterHoursBaselineW,
			excessW:           excess,
		}
	}
	return nil
}

// WasteClassifier assigns exactly one waste category per reading by walking
// the priority rule chain.
type WasteClassifier struct {
	cfg        ClassifierConfig
	thresholds ThresholdSource
}

// NewWasteClassifier constructs a classifier. The threshold source supplies
// the adaptive minimum-deviation floor; it may not be nil.
func NewWasteClassifier(cfg ClassifierConfig, thresholds ThresholdSource) (*WasteClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if thresholds == nil {
		return nil, fmt.Errorf("threshold source is required")
	}
	return &WasteClassifier{cfg: cfg, thresholds: thresholds}, nil
}

// Classify evaluates one reading against its baseline. haveBaseline is false
// for devices the learner omitted; such readings can only match the
// fixed-threshold phantom rule. Each record assumes a one-hour sample
// duration, matching the upstream meter cadence.
func (c *WasteClassifier) Classify(r models.MeterReading, b models.DeviceBaseline, haveBaseline bool) models.ClassifiedRecord {
	record := models.ClassifiedRecord{
		Reading:  r,
		Category: models.WasteNormal,
	}

	if _, exempt := exemptCategories[strings.ToLower(r.DeviceCategory)]; exempt {
		return record
	}

	profile := c.thresholds.ProfileFor(r.DeviceID, r.DeviceCategory)
	for _, rule := range classificationRules {
		m := rule.apply(r, b, haveBaseline, profile, c.cfg)
		if m == nil {
			continue
		}
		record.Category = m.category
		record.ExpectedBaselineW = m.expectedBaselineW
		record.ExcessPowerW = m.excessW
		record.WastedEnergyKWh = m.excessW / 1000.0
		return record
	}

	return record
}
