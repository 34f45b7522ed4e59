package alerts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// Reporter rolls the current alert and recommendation sets up to building
// level. Reports are recomputed from store snapshots on demand.
type Reporter struct {
	logger     *slog.Logger
	store      Store
	buildingID string
}

// NewReporter constructs a reporter over the given store.
func NewReporter(logger *slog.Logger, store Store, buildingID string) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, store: store, buildingID: buildingID}
}

// BuildReport aggregates all non-resolved alerts into a building summary:
// severity counts, the three costliest leaks, waste broken down by category,
// floor, and type, and the recommendation pipeline state.
func (r *Reporter) BuildReport(ctx context.Context) (models.BuildingReport, error) {
	alerts, err := r.store.ListAlerts(ctx)
	if err != nil {
		return models.BuildingReport{}, err
	}
	recs, err := r.store.ListRecommendations(ctx)
	if err != nil {
		return models.BuildingReport{}, err
	}

	report := models.BuildingReport{
		BuildingID:      r.buildingID,
		ReportDate:      time.Now(),
		WasteByCategory: make(map[string]float64),
		WasteByFloor:    make(map[string]float64),
		WasteByType:     make(map[string]float64),
		TopWasteLeaks:   []models.Alert{},
	}

	active := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Status == models.AlertResolved {
			continue
		}
		active = append(active, *a)

		report.TotalAlerts++
		switch a.Severity {
		case models.SeverityCritical:
			report.CriticalAlerts++
		case models.SeverityHigh:
			report.HighAlerts++
		}
		if a.Status == models.AlertOpen {
			report.OpenAlerts++
		}

		report.TotalMonthlyWasteINR += a.MonthlyCostINR
		report.TotalAnnualWasteINR += a.AnnualCostINR

		category := a.Category
		if category == "" {
			category = "unknown"
		}
		report.WasteByCategory[category] += a.AnnualCostINR

		floor := a.Location.Floor
		if floor == "" {
			floor = "Unknown"
		}
		report.WasteByFloor[floor] += a.AnnualCostINR

		report.WasteByType[string(a.WasteType)] += a.AnnualCostINR
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].AnnualCostINR > active[j].AnnualCostINR
	})
	top := len(active)
	if top > 3 {
		top = 3
	}
	report.TopWasteLeaks = append(report.TopWasteLeaks, active[:top]...)

	var paybackSum float64
	var paybackCount int
	for _, rec := range recs {
		report.TotalRecommendations++
		switch rec.Status {
		case models.RecApproved, models.RecInProgress, models.RecCompleted:
			report.ApprovedRecommendations++
		}
		report.ProjectedAnnualSavingsINR += rec.EstimatedAnnualSavingsINR
		paybackSum += rec.PaybackMonths
		paybackCount++
	}
	if paybackCount > 0 {
		report.ProjectedPaybackMonths = paybackSum / float64(paybackCount)
	}

	r.logger.Debug("building report assembled",
		slog.String("building_id", r.buildingID),
		slog.Int("active_alerts", report.TotalAlerts),
		slog.Float64("annual_waste_inr", report.TotalAnnualWasteINR))
	return report, nil
}

// FilterAlerts lists alerts matching every set field of the filter.
func (r *Reporter) FilterAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	alerts, err := r.store.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Floor != "" && !strings.EqualFold(a.Location.Floor, f.Floor) {
			continue
		}
		if f.DeviceCategory != "" && !strings.EqualFold(a.Category, f.DeviceCategory) {
			continue
		}
		if f.MinSeverity != "" && models.SeverityRank(a.Severity) < models.SeverityRank(f.MinSeverity) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.MinAnnualCostINR > 0 && a.AnnualCostINR < f.MinAnnualCostINR {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
