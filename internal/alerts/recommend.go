package alerts

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// RecommendationEngine renders costed corrective actions from fixed
// templates. Savings scale from the alert's annual cost; implementation
// costs are catalogue figures for common retrofit hardware.
type RecommendationEngine struct {
	logger *slog.Logger
}

// NewRecommendationEngine constructs the template engine.
func NewRecommendationEngine(logger *slog.Logger) *RecommendationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationEngine{logger: logger}
}

// recTemplate is one remediation pattern. savingsFraction is applied to the
// alert's annual waste cost to estimate recoverable savings.
type recTemplate struct {
	recType           models.RecommendationType
	title             string
	steps             []string
	savingsFraction   float64
	costINR           float64
	paybackMonths     float64
	confidencePercent float64
}

var phantomTemplates = []recTemplate{
	{
		recType: models.RecAutomation,
		title:   "Install smart power strip with auto-off",
		steps: []string{
			"Purchase a smart power strip with occupancy or schedule control",
			"Plug the device into a switched outlet on the strip",
			"Configure the strip to cut power outside working hours",
			"Verify standby draw drops to zero after cutoff",
		},
		savingsFraction:   0.85,
		costINR:           800,
		paybackMonths:     0.5,
		confidencePercent: 92,
	},
	{
		recType: models.RecMonitoring,
		title:   "Add plug-level power monitoring",
		steps: []string{
			"Install a plug-level energy monitor on the circuit",
			"Track standby draw for two weeks",
			"Confirm which devices contribute the residual load",
		},
		savingsFraction:   0.05,
		costINR:           1200,
		paybackMonths:     24,
		confidencePercent: 70,
	},
}

var occupancyTemplates = []recTemplate{
	{
		recType: models.RecAutomation,
		title:   "Install occupancy-based shutdown control",
		steps: []string{
			"Fit an occupancy sensor covering the device's zone",
			"Wire the sensor to the device's control circuit or BMS point",
			"Set a 15 minute vacancy timeout before setback or shutdown",
			"Review sensor logs after one week and tune the timeout",
		},
		savingsFraction:   0.75,
		costINR:           2500,
		paybackMonths:     3,
		confidencePercent: 88,
	},
}

var behaviorTemplate = recTemplate{
	recType: models.RecBehavior,
	title:   "Brief occupants on shutdown practice",
	steps: []string{
		"Share the device's waste cost with the responsible team",
		"Post a shutdown checklist near the device",
		"Review the next month's readings for improvement",
	},
	savingsFraction:   0.15,
	costINR:           100,
	paybackMonths:     0.1,
	confidencePercent: 40,
}

// Recommend returns the remediation set for an alert: the waste-type-specific
// templates plus a behavioural fallback that always applies.
func (e *RecommendationEngine) Recommend(alert *models.Alert) []models.Recommendation {
	var templates []recTemplate
	switch alert.WasteType {
	case models.WastePhantomLoad:
		templates = phantomTemplates
	case models.WasteUnoccupiedUsage, models.WasteAfterHours:
		templates = occupancyTemplates
	}
	templates = append(append([]recTemplate(nil), templates...), behaviorTemplate)

	now := time.Now()
	recs := make([]models.Recommendation, 0, len(templates))
	for _, t := range templates {
		recs = append(recs, models.Recommendation{
			ID:                        uuid.NewString(),
			AlertID:                   alert.ID,
			Type:                      t.recType,
			Title:                     t.title,
			ActionSteps:               append([]string(nil), t.steps...),
			EstimatedAnnualSavingsINR: alert.AnnualCostINR * t.savingsFraction,
			ImplementationCostINR:     t.costINR,
			PaybackMonths:             t.paybackMonths,
			ConfidencePercent:         t.confidencePercent,
			Status:                    models.RecProposed,
			CreatedAt:                 now,
		})
	}

	e.logger.Debug("recommendations generated",
		slog.String("alert_id", alert.ID),
		slog.Int("count", len(recs)))
	return recs
}
