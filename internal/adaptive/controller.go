// Package adaptive owns the feedback control loop: per-device threshold
// profiles, precision/recall tracking, and alert dampening decisions.
package adaptive

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// Category default thresholds, percent deviation for peak/off-peak/night.
var defaultThresholds = map[string][3]float64{
	"hvac":     {60, 30, 20},
	"lighting": {70, 40, 10},
	"kitchen":  {50, 25, 15},
	"office":   {45, 20, 10},
	"default":  {50, 25, 15},
}

const (
	defaultMinDeviationW  = 50.0
	defaultMinHoursAlerts = 24.0

	// Precision below this triggers threshold tightening. There is no
	// symmetric loosening rule: under-alerting and over-alerting carry
	// asymmetric costs, so thresholds only ever move up.
	precisionFloor = 0.6

	tighteningFactor = 1.1
)

// Controller serialises all mutation of per-device threshold profiles and the
// building-wide adaptation metrics. The dedup check on LastAlertTime is a
// read-modify-write, so callers go through ShouldAlert/RecordAlert rather
// than reading profiles directly.
type Controller struct {
	logger     *slog.Logger
	buildingID string

	mu       sync.Mutex
	profiles map[string]*models.ThresholdProfile
	metrics  models.AdaptationMetrics
	feedback int
}

// NewController creates a Controller seeded with the prior precision/recall
// estimates used before any feedback arrives.
func NewController(logger *slog.Logger, buildingID string) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:     logger,
		buildingID: buildingID,
		profiles:   make(map[string]*models.ThresholdProfile),
		metrics: models.AdaptationMetrics{
			Precision: 0.8,
			Recall:    0.7,
		},
	}
}

// ProfileFor returns a copy of the device's threshold profile, creating the
// category default on first sight.
func (c *Controller) ProfileFor(deviceID, category string) models.ThresholdProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.ensureProfileLocked(deviceID, category)
}

func (c *Controller) ensureProfileLocked(deviceID, category string) *models.ThresholdProfile {
	if p, ok := c.profiles[deviceID]; ok {
		return p
	}
	base, ok := defaultThresholds[strings.ToLower(category)]
	if !ok {
		base = defaultThresholds["default"]
	}
	p := &models.ThresholdProfile{
		DeviceID:                deviceID,
		Category:                category,
		PeakThresholdPercent:    base[0],
		OffPeakThresholdPercent: base[1],
		NightThresholdPercent:   base[2],
		MinDeviationW:           defaultMinDeviationW,
		MinHoursBetweenAlert:    defaultMinHoursAlerts,
		LastUpdated:             time.Now(),
	}
	c.profiles[deviceID] = p
	return p
}

// SubmitFeedback ingests one operator verdict, recomputes precision/recall,
// and tightens the device's thresholds when precision drops below the floor.
// Returns the updated metrics snapshot.
func (c *Controller) SubmitFeedback(fb models.Feedback) models.AdaptationMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.feedback++
	switch fb.Outcome {
	case models.FeedbackTruePositive:
		c.metrics.TruePositives++
	case models.FeedbackFalsePositive:
		c.metrics.FalsePositives++
	case models.FeedbackFalseNegative:
		c.metrics.FalseNegatives++
	}

	if total := c.metrics.TruePositives + c.metrics.FalsePositives; total > 0 {
		c.metrics.Precision = float64(c.metrics.TruePositives) / float64(total)
	}
	if total := c.metrics.TruePositives + c.metrics.FalseNegatives; total > 0 {
		c.metrics.Recall = float64(c.metrics.TruePositives) / float64(total)
	}

	if fb.DeviceID != "" && c.metrics.Precision < precisionFloor {
		if p, ok := c.profiles[fb.DeviceID]; ok {
			p.PeakThresholdPercent *= tighteningFactor
			p.OffPeakThresholdPercent *= tighteningFactor
			p.LastUpdated = time.Now()
			c.logger.Info("tightened detection thresholds",
				slog.String("device_id", fb.DeviceID),
				slog.Float64("precision", c.metrics.Precision),
				slog.Float64("peak_percent", p.PeakThresholdPercent))
		}
	}

	return c.metrics
}

// ShouldAlert decides whether a new alert instance for the device may be
// emitted at now. Suppression applies inside the per-device re-alert window
// and while the building-wide F1 score marks the detector unreliable;
// critical severity overrides both.
func (c *Controller) ShouldAlert(deviceID, category string, severity models.Severity, now time.Time) bool {
	if severity == models.SeverityCritical {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.ensureProfileLocked(deviceID, category)
	if p.LastAlertTime != nil {
		if now.Sub(*p.LastAlertTime).Hours() < p.MinHoursBetweenAlert {
			return false
		}
	}
	if c.metrics.F1() < 0.5 {
		return false
	}
	return true
}

// RecordAlert stamps the device's last alert time after an emission.
func (c *Controller) RecordAlert(deviceID, category string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.ensureProfileLocked(deviceID, category)
	t := now
	p.LastAlertTime = &t
}

// MetricsSnapshot returns the current adaptation metrics.
func (c *Controller) MetricsSnapshot() models.AdaptationMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// LearningSummary reports adaptation progress for API consumers.
func (c *Controller) LearningSummary() models.LearningSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.LearningSummary{
		BuildingID:         c.buildingID,
		AdaptiveThresholds: len(c.profiles),
		TotalFeedback:      c.feedback,
		Metrics:            c.metrics,
		F1Score:            c.metrics.F1(),
	}
}
