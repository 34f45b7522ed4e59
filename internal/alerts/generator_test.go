package alerts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capermax-01/energy-waste-engine/internal/adaptive"
	"github.com/capermax-01/energy-waste-engine/internal/engine"
	"github.com/capermax-01/energy-waste-engine/internal/models"
)

func newTestGenerator(t *testing.T) (*Generator, *MemoryStore, *adaptive.Controller) {
	t.Helper()
	store := NewMemoryStore()
	controller := adaptive.NewController(nil, "bldg-1")
	cost, err := engine.NewCostModel(8)
	require.NoError(t, err)
	gen, err := NewGenerator(nil, store, controller, cost)
	require.NoError(t, err)
	return gen, store, controller
}

func phantomRecord(hour int, powerW float64) models.ClassifiedRecord {
	return models.ClassifiedRecord{
		Reading: models.MeterReading{
			Timestamp:      time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC),
			DeviceID:       "PRINTER_1",
			DeviceCategory: "printer",
			PowerW:         powerW,
			Occupancy:      models.OccupancyUnoccupied,
		},
		Category:        models.WastePhantomLoad,
		ExcessPowerW:    powerW,
		WastedEnergyKWh: powerW / 1000,
	}
}

func TestProcessGroupsPerDeviceAndType(t *testing.T) {
	gen, store, _ := newTestGenerator(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	issues := gen.Process(context.Background(), []models.ClassifiedRecord{
		phantomRecord(1, 12),
		phantomRecord(2, 12),
		{Reading: models.MeterReading{
			Timestamp: now, DeviceID: "PC_1", DeviceCategory: "computer", PowerW: 90,
			Occupancy: models.OccupancyOccupied,
		}, Category: models.WasteNormal},
	}, nil, now)

	require.Len(t, issues, 1, "normal records must not produce issues")
	require.Equal(t, models.WastePhantomLoad, issues[0].WasteType)
	require.Equal(t, "PRINTER_1", issues[0].DeviceID)

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	require.Equal(t, 2, a.DetectionCount)
	require.Equal(t, models.AlertOpen, a.Status)
	require.True(t, a.OccupancyMismatch)
	require.NotEmpty(t, a.Evidence)
	require.Len(t, a.RecommendationIDs, 3, "phantom alerts get two templates plus the behaviour fallback")

	recs, err := store.ListRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
}

func TestProcessDedupExtendsExistingAlert(t *testing.T) {
	gen, store, _ := newTestGenerator(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	records := []models.ClassifiedRecord{phantomRecord(1, 12), phantomRecord(2, 12)}

	gen.Process(context.Background(), records, nil, now)
	gen.Process(context.Background(), records, nil, now.Add(2*time.Hour))

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1, "re-detection inside the window must not create a second alert id")
	require.Equal(t, 3, alerts[0].DetectionCount)
	require.Equal(t, now.Add(2*time.Hour), alerts[0].LastDetected)
}

func TestProcessNewEpisodeAfterWindow(t *testing.T) {
	gen, store, _ := newTestGenerator(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	records := []models.ClassifiedRecord{phantomRecord(1, 12)}

	gen.Process(context.Background(), records, nil, now)
	gen.Process(context.Background(), records, nil, now.Add(30*time.Hour))

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2, "past the re-alert window a fresh episode is created")
}

func TestProcessConcurrentSameDeviceSingleAlert(t *testing.T) {
	gen, store, _ := newTestGenerator(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	records := []models.ClassifiedRecord{phantomRecord(1, 12)}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen.Process(context.Background(), records, nil, now)
		}()
	}
	wg.Wait()

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1, "concurrent passes over one device must share one alert id")
	require.Equal(t, 32, alerts[0].DetectionCount, "every pass past the first extends the episode")
}

type lookupFailStore struct {
	*MemoryStore
	findErr error
}

func (s *lookupFailStore) FindOpenAlert(context.Context, string, models.WasteCategory) (*models.Alert, error) {
	return nil, s.findErr
}

func TestProcessAbortsOnStoreLookupFailure(t *testing.T) {
	store := &lookupFailStore{MemoryStore: NewMemoryStore(), findErr: fmt.Errorf("disk I/O error")}
	controller := adaptive.NewController(nil, "bldg-1")
	cost, err := engine.NewCostModel(8)
	require.NoError(t, err)
	gen, err := NewGenerator(nil, store, controller, cost)
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	gen.Process(context.Background(), []models.ClassifiedRecord{phantomRecord(1, 12)}, nil, now)

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Empty(t, alerts, "a store lookup failure must not open a new episode")

	recs, err := store.ListRecommendations(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestProcessCriticalBypassesDampening(t *testing.T) {
	gen, store, _ := newTestGenerator(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	// 600W mean excess extrapolates past the critical daily-cost bar.
	records := []models.ClassifiedRecord{{
		Reading: models.MeterReading{
			Timestamp: now, DeviceID: "HVAC_3", DeviceCategory: "hvac", PowerW: 650,
			Occupancy: models.OccupancyUnoccupied,
		},
		Category:        models.WasteUnoccupiedUsage,
		ExcessPowerW:    600,
		WastedEnergyKWh: 0.6,
	}}

	gen.Process(context.Background(), records, nil, now)
	gen.Process(context.Background(), records, nil, now.Add(time.Hour))

	alerts, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2, "critical severity must bypass the re-alert window")
	require.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		wasteType models.WasteCategory
		dailyCost float64
		want      models.Severity
	}{
		{models.WastePhantomLoad, 25, models.SeverityMedium},
		{models.WastePhantomLoad, 10, models.SeverityLow},
		{models.WasteUnoccupiedUsage, 150, models.SeverityCritical},
		{models.WasteUnoccupiedUsage, 60, models.SeverityHigh},
		{models.WasteAfterHours, 80, models.SeverityHigh},
		{models.WasteAfterHours, 20, models.SeverityMedium},
		{models.WasteInefficient, 500, models.SeverityLow},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, severityFor(tc.wasteType, tc.dailyCost),
			"waste %s at %.0f/day", tc.wasteType, tc.dailyCost)
	}
}

func TestRecommendationTemplates(t *testing.T) {
	eng := NewRecommendationEngine(nil)

	phantom := &models.Alert{ID: "a1", WasteType: models.WastePhantomLoad, AnnualCostINR: 10000}
	recs := eng.Recommend(phantom)
	require.Len(t, recs, 3)
	require.Equal(t, models.RecAutomation, recs[0].Type)
	require.InDelta(t, 8500, recs[0].EstimatedAnnualSavingsINR, 1e-9)
	require.Equal(t, models.RecBehavior, recs[len(recs)-1].Type, "behaviour fallback is always last")

	afterHours := &models.Alert{ID: "a2", WasteType: models.WasteAfterHours, AnnualCostINR: 4000}
	recs = eng.Recommend(afterHours)
	require.Len(t, recs, 2)
	require.Equal(t, "Install occupancy-based shutdown control", recs[0].Title)

	unknown := &models.Alert{ID: "a3", WasteType: models.WasteInefficient, AnnualCostINR: 1000}
	recs = eng.Recommend(unknown)
	require.Len(t, recs, 1, "unmatched waste types still get the behaviour recommendation")
	require.Equal(t, models.RecBehavior, recs[0].Type)
}

func TestRecommendationROI(t *testing.T) {
	r := models.Recommendation{EstimatedAnnualSavingsINR: 8500, ImplementationCostINR: 800}
	require.InDelta(t, 8500.0/801.0*100, r.ROIPercent(), 1e-9)

	free := models.Recommendation{EstimatedAnnualSavingsINR: 100, ImplementationCostINR: 0}
	require.InDelta(t, 10000, free.ROIPercent(), 1e-9, "the +1 keeps free actions finite")
}
