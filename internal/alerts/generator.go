package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capermax-01/energy-waste-engine/internal/adaptive"
	"github.com/capermax-01/energy-waste-engine/internal/engine"
	"github.com/capermax-01/energy-waste-engine/internal/metrics"
	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// Generator implements engine.AlertSink. It aggregates classified waste per
// (device, waste type), renders issues for the analysis report, and persists
// deduplicated alerts with linked recommendations.
type Generator struct {
	logger      *slog.Logger
	store       Store
	controller  *adaptive.Controller
	recommender *RecommendationEngine
	cost        engine.CostModel

	mu          sync.Mutex
	deviceLocks map[string]*sync.Mutex
}

// NewGenerator wires the alert pipeline. Store and controller may not be nil.
func NewGenerator(logger *slog.Logger, store Store, controller *adaptive.Controller, cost engine.CostModel) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil || controller == nil {
		return nil, fmt.Errorf("store and controller are required")
	}
	return &Generator{
		logger:      logger,
		store:       store,
		controller:  controller,
		recommender: NewRecommendationEngine(logger),
		cost:        cost,
		deviceLocks: make(map[string]*sync.Mutex),
	}, nil
}

// lockDevice returns the mutex serialising alert writes for one device.
func (g *Generator) lockDevice(deviceID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.deviceLocks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		g.deviceLocks[deviceID] = l
	}
	return l
}

type wasteGroup struct {
	deviceID  string
	category  string
	location  models.Location
	wasteType models.WasteCategory

	count       int
	sumExcessW  float64
	sumKWh      float64
	firstSeen   time.Time
	lastSeen    time.Time
	unoccupied  bool
	peakPowerW  float64
	peakExcessW float64
}

// Process converts one pass's classified records into report issues and
// persisted alerts. Normal records are ignored; the rest group per device and
// waste type so one sustained episode yields one issue, not one per hour.
func (g *Generator) Process(ctx context.Context, records []models.ClassifiedRecord, baselines map[string]models.DeviceBaseline, now time.Time) []models.Issue {
	groups := make(map[string]*wasteGroup)
	order := make([]string, 0)

	for _, rec := range records {
		if rec.Category == models.WasteNormal {
			continue
		}
		key := rec.Reading.DeviceID + "|" + string(rec.Category)
		grp, ok := groups[key]
		if !ok {
			grp = &wasteGroup{
				deviceID:  rec.Reading.DeviceID,
				category:  rec.Reading.DeviceCategory,
				location:  rec.Reading.Location,
				wasteType: rec.Category,
				firstSeen: rec.Reading.Timestamp,
				lastSeen:  rec.Reading.Timestamp,
			}
			groups[key] = grp
			order = append(order, key)
		}
		grp.count++
		grp.sumExcessW += rec.ExcessPowerW
		grp.sumKWh += rec.WastedEnergyKWh
		if rec.Reading.Timestamp.Before(grp.firstSeen) {
			grp.firstSeen = rec.Reading.Timestamp
		}
		if rec.Reading.Timestamp.After(grp.lastSeen) {
			grp.lastSeen = rec.Reading.Timestamp
		}
		if rec.Reading.Occupancy == models.OccupancyUnoccupied {
			grp.unoccupied = true
		}
		if rec.Reading.PowerW > grp.peakPowerW {
			grp.peakPowerW = rec.Reading.PowerW
		}
		if rec.ExcessPowerW > grp.peakExcessW {
			grp.peakExcessW = rec.ExcessPowerW
		}
	}

	sort.Strings(order)

	issues := make([]models.Issue, 0, len(order))
	for _, key := range order {
		grp := groups[key]
		issue := g.buildIssue(grp, baselines[grp.deviceID])
		issues = append(issues, issue)
		g.upsertAlert(ctx, grp, issue, now)
	}
	return issues
}

// buildIssue renders one group as a report finding. Daily cost extrapolates
// the mean excess draw as if it persisted around the clock.
func (g *Generator) buildIssue(grp *wasteGroup, baseline models.DeviceBaseline) models.Issue {
	meanExcessW := grp.sumExcessW / float64(grp.count)
	dailyKWh := meanExcessW / 1000.0 * 24.0
	dailyCost, _, _ := g.cost.Costs(dailyKWh)

	issue := models.Issue{
		Location:       grp.location.String(),
		DeviceID:       grp.deviceID,
		WasteType:      grp.wasteType,
		ExtraEnergyKWh: grp.sumKWh,
		CostPerDayINR:  dailyCost,
		Severity:       severityFor(grp.wasteType, dailyCost),
	}

	label := deviceLabel(grp.category, grp.deviceID)
	switch grp.wasteType {
	case models.WastePhantomLoad:
		issue.Title = fmt.Sprintf("%s drawing standby power", label)
		issue.TimePeriod = "while space is unoccupied"
		issue.Action = "Install a smart power strip to cut standby power automatically"
		issue.Reason = fmt.Sprintf("%s keeps drawing about %.0f W with nobody present", label, meanExcessW)
	case models.WasteUnoccupiedUsage:
		issue.Title = fmt.Sprintf("%s running at full power in empty space", label)
		issue.TimePeriod = "during unoccupied hours"
		issue.Action = "Add occupancy-based control to shut the device down when the space empties"
		issue.Reason = fmt.Sprintf("%s runs %.0f W above its %.0f W unoccupied baseline", label, meanExcessW, baseline.UnoccupiedBaselineW)
	case models.WasteAfterHours:
		issue.Title = fmt.Sprintf("%s left on after hours", label)
		issue.TimePeriod = "outside business hours"
		issue.Action = "Schedule an automatic shutdown outside business hours"
		issue.Reason = fmt.Sprintf("%s draws %.0f W above baseline when the building is closed", label, meanExcessW)
	default:
		issue.Title = fmt.Sprintf("%s wasting energy", label)
		issue.TimePeriod = "ongoing"
		issue.Action = "Investigate the device's duty cycle"
		issue.Reason = fmt.Sprintf("%s shows sustained excess draw of %.0f W", label, meanExcessW)
	}
	return issue
}

// upsertAlert applies dedup and dampening before creating a new alert. A
// repeat detection inside the re-alert window extends the existing alert;
// only a cleared ShouldAlert creates a fresh episode. The per-device lock is
// held across find, decide, persist, and stamp so concurrent passes over the
// same device cannot each observe "no open alert" and emit duplicates.
func (g *Generator) upsertAlert(ctx context.Context, grp *wasteGroup, issue models.Issue, now time.Time) {
	lock := g.lockDevice(grp.deviceID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := g.store.FindOpenAlert(ctx, grp.deviceID, grp.wasteType)
	switch {
	case err == nil:
		if !g.controller.ShouldAlert(grp.deviceID, grp.category, issue.Severity, now) {
			_, uerr := g.store.UpdateAlert(ctx, existing.ID, func(a *models.Alert) error {
				a.DetectionCount++
				a.LastDetected = now
				a.WastedEnergyKWh += grp.sumKWh
				a.UpdatedAt = now
				return nil
			})
			if uerr != nil {
				g.logger.Error("failed to extend alert", slog.String("alert_id", existing.ID), slog.Any("error", uerr))
				return
			}
			metrics.RecordAlertSuppressed()
			g.logger.Debug("alert suppressed, existing episode extended",
				slog.String("alert_id", existing.ID),
				slog.String("device_id", grp.deviceID),
				slog.String("waste_type", string(grp.wasteType)))
			return
		}
	case errors.Is(err, ErrNotFound):
		if !g.controller.ShouldAlert(grp.deviceID, grp.category, issue.Severity, now) {
			metrics.RecordAlertSuppressed()
			g.logger.Debug("alert suppressed by reliability gate",
				slog.String("device_id", grp.deviceID),
				slog.String("waste_type", string(grp.wasteType)))
			return
		}
	default:
		// A broken store must not look like "no existing alert".
		g.logger.Error("failed to look up open alert",
			slog.String("device_id", grp.deviceID),
			slog.String("waste_type", string(grp.wasteType)),
			slog.Any("error", err))
		return
	}

	meanExcessW := grp.sumExcessW / float64(grp.count)
	dailyKWh := meanExcessW / 1000.0 * 24.0
	daily, monthly, annual := g.cost.Costs(dailyKWh)

	alert := &models.Alert{
		ID:                uuid.NewString(),
		Severity:          issue.Severity,
		Title:             issue.Title,
		Description:       issue.Reason,
		DeviceID:          grp.deviceID,
		Category:          grp.category,
		Location:          grp.location,
		WasteType:         grp.wasteType,
		DailyCostINR:      daily,
		MonthlyCostINR:    monthly,
		AnnualCostINR:     annual,
		WastedEnergyKWh:   grp.sumKWh,
		MeanExcessW:       meanExcessW,
		FirstDetected:     grp.firstSeen,
		LastDetected:      grp.lastSeen,
		DetectionCount:    grp.count,
		Evidence:          evidenceFor(grp, meanExcessW),
		OccupancyMismatch: grp.unoccupied,
		Status:            models.AlertOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	recs := g.recommender.Recommend(alert)
	for i := range recs {
		if err := g.store.PutRecommendation(ctx, &recs[i]); err != nil {
			g.logger.Error("failed to persist recommendation", slog.Any("error", err))
			continue
		}
		alert.RecommendationIDs = append(alert.RecommendationIDs, recs[i].ID)
	}

	if err := g.store.PutAlert(ctx, alert); err != nil {
		g.logger.Error("failed to persist alert", slog.String("alert_id", alert.ID), slog.Any("error", err))
		return
	}
	g.controller.RecordAlert(grp.deviceID, grp.category, now)
	metrics.RecordAlertEmitted(string(alert.Severity))

	g.logger.Info("alert emitted",
		slog.String("alert_id", alert.ID),
		slog.String("device_id", grp.deviceID),
		slog.String("waste_type", string(grp.wasteType)),
		slog.String("severity", string(alert.Severity)),
		slog.Float64("annual_cost_inr", annual))
}

// severityFor maps waste type and daily cost to alert priority. Unoccupied
// full-power use escalates fastest because it is the most actionable.
func severityFor(wasteType models.WasteCategory, dailyCostINR float64) models.Severity {
	switch wasteType {
	case models.WastePhantomLoad:
		if dailyCostINR > 20 {
			return models.SeverityMedium
		}
		return models.SeverityLow
	case models.WasteUnoccupiedUsage:
		if dailyCostINR > 100 {
			return models.SeverityCritical
		}
		return models.SeverityHigh
	case models.WasteAfterHours:
		if dailyCostINR > 50 {
			return models.SeverityHigh
		}
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func evidenceFor(grp *wasteGroup, meanExcessW float64) []string {
	ev := []string{
		fmt.Sprintf("%d readings flagged between %s and %s",
			grp.count,
			grp.firstSeen.Format("2006-01-02 15:04"),
			grp.lastSeen.Format("2006-01-02 15:04")),
		fmt.Sprintf("mean excess draw %.1f W, peak excess %.1f W", meanExcessW, grp.peakExcessW),
		fmt.Sprintf("highest observed draw %.1f W", grp.peakPowerW),
		fmt.Sprintf("%.2f kWh wasted over the detection window", grp.sumKWh),
	}
	if grp.unoccupied {
		ev = append(ev, "occupancy sensors reported the space empty during detections")
	}
	return ev
}

// deviceLabel builds a readable name like "HVAC unit HVAC_3".
func deviceLabel(category, deviceID string) string {
	cat := strings.ToLower(category)
	switch cat {
	case "hvac":
		return "HVAC unit " + deviceID
	case "lighting":
		return "Lighting circuit " + deviceID
	case "":
		return "Device " + deviceID
	default:
		return strings.ToUpper(cat[:1]) + cat[1:] + " " + deviceID
	}
}
