package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/metrics"
	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// conservationCap bounds classified waste at 95% of measured consumption.
// Detected waste can never imply negative useful consumption.
const conservationCap = 0.95

// AlertSink turns a pass's classified records into persisted alerts and
// report issues. Implemented by the alerts generator.
type AlertSink interface {
	Process(ctx context.Context, records []models.ClassifiedRecord, baselines map[string]models.DeviceBaseline, now time.Time) []models.Issue
}

// Bounds clips readings to a plausible power range. Values outside are
// clipped and flagged, never fatal.
type Bounds struct {
	MinPowerW float64
	MaxPowerW float64
}

// DefaultBounds covers a commercial meter's plausible range.
func DefaultBounds() Bounds {
	return Bounds{MinPowerW: 0, MaxPowerW: 50000}
}

// Validate rejects inverted bounds at construction time.
func (b Bounds) Validate() error {
	if b.MaxPowerW <= b.MinPowerW {
		return fmt.Errorf("power bounds inverted: [%f, %f]", b.MinPowerW, b.MaxPowerW)
	}
	return nil
}

// Analyzer is the synchronous single-pass batch processor: one Analyze call
// produces a complete, self-consistent report. Concurrent calls are safe;
// all shared mutable state lives behind the sink and threshold controller.
type Analyzer struct {
	logger     *slog.Logger
	learner    *BaselineLearner
	classifier *WasteClassifier
	cost       CostModel
	bounds     Bounds
	sink       AlertSink
}

// NewAnalyzer wires the analysis pipeline. Configuration problems (bad
// bounds) are fatal here per the error-handling contract.
func NewAnalyzer(logger *slog.Logger, learner *BaselineLearner, classifier *WasteClassifier, cost CostModel, bounds Bounds, sink AlertSink) (*Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if learner == nil || classifier == nil || sink == nil {
		return nil, fmt.Errorf("learner, classifier, and sink are required")
	}
	return &Analyzer{
		logger:     logger,
		learner:    learner,
		classifier: classifier,
		cost:       cost,
		bounds:     bounds,
		sink:       sink,
	}, nil
}

// Analyze runs the full pass: sanitize, learn baselines, classify, cap
// classified waste below total consumption, generate issues and alerts, and
// price the waste.
// Data-quality problems are absorbed (skipped or clipped); Analyze never
// fails on bad readings.
func (a *Analyzer) Analyze(ctx context.Context, readings []models.MeterReading) (models.AnalysisReport, error) {
	now := time.Now()
	if len(readings) == 0 {
		return emptyReport(now), nil
	}

	clean, skipped, clipped := a.sanitize(readings)
	if len(clean) == 0 {
		report := emptyReport(now)
		report.ReadingsSkipped = skipped
		return report, nil
	}

	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})

	// Each record represents one metered hour.
	totalKWh := 0.0
	for _, r := range clean {
		totalKWh += r.PowerW / 1000.0
	}

	baselines := a.learner.Learn(clean)

	records := make([]models.ClassifiedRecord, 0, len(clean))
	wastedKWh := 0.0
	for _, r := range clean {
		b, ok := baselines[r.DeviceID]
		rec := a.classifier.Classify(r, b, ok)
		wastedKWh += rec.WastedEnergyKWh
		records = append(records, rec)
	}

	if budget := totalKWh * conservationCap; wastedKWh > budget && wastedKWh > 0 {
		scale := budget / wastedKWh
		a.logger.Warn("classified waste exceeds conservation cap, scaling down",
			slog.Float64("total_kwh", totalKWh),
			slog.Float64("wasted_kwh", wastedKWh),
			slog.Float64("scale", scale))
		wastedKWh = 0
		for i := range records {
			records[i].WastedEnergyKWh *= scale
			wastedKWh += records[i].WastedEnergyKWh
		}
	}

	issues := a.sink.Process(ctx, records, baselines, now)
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CostPerDayINR > issues[j].CostPerDayINR
	})

	daily, monthly, annual := a.cost.Costs(wastedKWh)

	report := models.AnalysisReport{
		TotalEnergyKWh:   totalKWh,
		WastedEnergyKWh:  wastedKWh,
		DailyLossINR:     daily,
		MonthlyLossINR:   monthly,
		YearlyLossINR:    annual,
		EfficiencyScore:  efficiencyScore(totalKWh, wastedKWh),
		Issues:           issues,
		AutomationRules:  automationRules(issues),
		MainWasteSource:  mainWasteSource(issues),
		ReadingsAnalyzed: len(clean),
		ReadingsSkipped:  skipped,
		ReadingsClipped:  clipped,
		GeneratedAt:      now,
	}
	return report, nil
}

// sanitize drops records missing required fields and clips power to bounds.
func (a *Analyzer) sanitize(readings []models.MeterReading) (clean []models.MeterReading, skipped, clipped int) {
	clean = make([]models.MeterReading, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp.IsZero() || r.DeviceID == "" {
			skipped++
			continue
		}
		if r.PowerW < a.bounds.MinPowerW {
			r.PowerW = a.bounds.MinPowerW
			clipped++
		} else if r.PowerW > a.bounds.MaxPowerW {
			r.PowerW = a.bounds.MaxPowerW
			clipped++
		}
		if r.Occupancy == "" {
			r.Occupancy = models.OccupancyUnknown
		}
		clean = append(clean, r)
	}
	if skipped > 0 || clipped > 0 {
		a.logger.Warn("readings sanitized", slog.Int("skipped", skipped), slog.Int("clipped", clipped))
		metrics.RecordReadingsRejected("skipped", skipped)
		metrics.RecordReadingsRejected("clipped", clipped)
	}
	return clean, skipped, clipped
}

func efficiencyScore(totalKWh, wastedKWh float64) int {
	if totalKWh == 0 {
		return 100
	}
	score := int(100 - wastedKWh/totalKWh*100)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func emptyReport(now time.Time) models.AnalysisReport {
	return models.AnalysisReport{
		EfficiencyScore: 100,
		Issues:          []models.Issue{},
		AutomationRules: []string{},
		MainWasteSource: "No data available for analysis",
		GeneratedAt:     now,
	}
}

// automationRules derives IF-THEN control suggestions from the issue mix.
func automationRules(issues []models.Issue) []string {
	var hasAfterHours, hasPhantom, hasUnoccupied bool
	for _, issue := range issues {
		switch issue.WasteType {
		case models.WasteAfterHours:
			hasAfterHours = true
		case models.WastePhantomLoad:
			hasPhantom = true
		case models.WasteUnoccupiedUsage:
			hasUnoccupied = true
		}
	}

	rules := make([]string, 0, 4)
	if hasAfterHours {
		rules = append(rules, "IF time is after 6:00 PM, THEN turn off all HVAC and lighting systems")
	}
	if hasUnoccupied {
		rules = append(rules,
			"IF occupancy sensor detects no motion for 15 minutes, THEN reduce HVAC to setback mode",
			"IF space is unoccupied, THEN turn off all non-essential lighting")
	}
	if hasPhantom {
		rules = append(rules, "IF device is in standby mode for more than 1 hour, THEN cut power completely")
	}
	return rules
}

// mainWasteSource attributes waste cost to coarse buckets and names the
// dominant one with its share.
func mainWasteSource(issues []models.Issue) string {
	if len(issues) == 0 {
		return "No significant energy waste detected. System is operating efficiently."
	}

	buckets := make(map[string]float64)
	for _, issue := range issues {
		switch {
		case issue.WasteType == models.WastePhantomLoad:
			buckets["Phantom Loads"] += issue.CostPerDayINR
		case strings.Contains(strings.ToLower(issue.Title), "hvac"):
			buckets["HVAC"] += issue.CostPerDayINR
		case strings.Contains(strings.ToLower(issue.Title), "lighting"):
			buckets["Lighting"] += issue.CostPerDayINR
		default:
			buckets["Other Devices"] += issue.CostPerDayINR
		}
	}

	var mainName string
	var mainCost, total float64
	for name, cost := range buckets {
		total += cost
		if cost > mainCost || (cost == mainCost && name < mainName) {
			mainName = name
			mainCost = cost
		}
	}
	if total == 0 {
		return "Energy waste detected across multiple device categories."
	}
	return fmt.Sprintf("Most waste comes from %s (%d%% of total waste)", mainName, int(mainCost/total*100))
}
