package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capermax-01/energy-waste-engine/internal/adaptive"
	"github.com/capermax-01/energy-waste-engine/internal/alerts"
	appcache "github.com/capermax-01/energy-waste-engine/internal/cache"
	"github.com/capermax-01/energy-waste-engine/internal/engine"
	"github.com/capermax-01/energy-waste-engine/internal/models"
)

func newTestServer(t *testing.T) (*Server, alerts.Store) {
	return newTestServerWithCache(t, nil)
}

func newTestServerWithCache(t *testing.T, provider appcache.Provider) (*Server, alerts.Store) {
	t.Helper()

	store := alerts.NewMemoryStore()
	controller := adaptive.NewController(nil, "bldg-1")
	cost, err := engine.NewCostModel(8)
	require.NoError(t, err)

	classifier, err := engine.NewWasteClassifier(engine.DefaultClassifierConfig(), controller)
	require.NoError(t, err)
	generator, err := alerts.NewGenerator(nil, store, controller, cost)
	require.NoError(t, err)
	analyzer, err := engine.NewAnalyzer(nil, engine.NewBaselineLearner(nil), classifier, cost, engine.DefaultBounds(), generator)
	require.NoError(t, err)

	srv, err := NewServer(":0", Options{
		Analyzer:   analyzer,
		Controller: controller,
		Reporter:   alerts.NewReporter(nil, store, "bldg-1"),
		Store:      store,
		Cache:      provider,
		BuildingID: "bldg-1",
	})
	require.NoError(t, err)
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

const phantomBatch = `[
	{"timestamp":"2026-03-02T01:00:00Z","device_id":"PRINTER_1","device_category":"printer","power_w":12,"occupancy_status":"unoccupied"},
	{"timestamp":"2026-03-02T02:00:00Z","device_id":"PRINTER_1","device_category":"printer","power_w":12,"occupancy_status":"unoccupied"},
	{"timestamp":"2026-03-02T10:00:00Z","device_id":"PC_1","device_category":"computer","power_w":90,"occupancy_status":"occupied"}
]`

func TestHandleAnalyze(t *testing.T) {
	srv, store := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/analyze", phantomBatch)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Report models.AnalysisReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Report.ReadingsAnalyzed)
	require.Greater(t, resp.Report.WastedEnergyKWh, 0.0)
	require.NotEmpty(t, resp.Report.Issues)
	require.NotEmpty(t, resp.Report.AutomationRules)

	list, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestHandleAnalyzeCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	csv := "timestamp,device_id,device_category,power_w,occupancy_status\n" +
		"2026-03-02 01:00:00,PRINTER_1,printer,12,unoccupied\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandleAnalyzeBadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPost, "/api/v1/analyze", `{"not":"an array"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleFeedback(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"device_id":"PRINTER_1","feedback_type":"true_positive"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var summary models.LearningSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.TotalFeedback)
	require.Equal(t, 1, summary.Metrics.TruePositives)
}

func TestHandleFeedbackRejectsUnknownOutcome(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"device_id":"PRINTER_1","feedback_type":"maybe"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleListAlertsWithFilters(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/api/v1/analyze", phantomBatch)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)

	rr = doRequest(t, srv, http.MethodGet, "/api/v1/alerts?min_severity=critical", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Zero(t, resp.Count, "phantom printer alert is low severity")

	rr = doRequest(t, srv, http.MethodGet, "/api/v1/alerts?min_annual_cost=bogus", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleAlertLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/api/v1/analyze", phantomBatch)

	list, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/alerts/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, srv, http.MethodPatch, "/api/v1/alerts/"+id,
		`{"status":"acknowledged","assigned_to":"facilities"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var updated models.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, models.AlertAcknowledged, updated.Status)
	require.Equal(t, "facilities", updated.AssignedTo)

	rr = doRequest(t, srv, http.MethodGet, "/api/v1/alerts/no-such-id", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleRecommendationLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/api/v1/analyze", phantomBatch)

	recs, err := store.ListRecommendations(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	id := recs[0].ID

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/recommendations/"+id+"/approve",
		`{"approved_by":"ops-lead"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, srv, http.MethodPost, "/api/v1/recommendations/"+id+"/complete",
		`{"actual_savings_inr":1200}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var rec models.Recommendation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Equal(t, models.RecCompleted, rec.Status)
	require.NotNil(t, rec.ActualSavingsINR)
}

func TestHandleReport(t *testing.T) {
	srv, _ := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/api/v1/analyze", phantomBatch)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var report models.BuildingReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, "bldg-1", report.BuildingID)
	require.Equal(t, 1, report.TotalAlerts)
	require.NotEmpty(t, report.TopWasteLeaks)
}

// peerRebuildCache denies the rebuild lock and publishes a finished report
// under the report key, standing in for a replica that won the SetNX race.
type peerRebuildCache struct {
	appcache.NoopProvider
	reportKey string
	peerBody  []byte
	data      map[string][]byte
}

func (c *peerRebuildCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, appcache.ErrCacheMiss
}

func (c *peerRebuildCache) SetNX(_ context.Context, _ string, _ []byte, _ time.Duration) (bool, error) {
	c.data[c.reportKey] = c.peerBody
	return false, nil
}

func TestHandleReportWaitsForPeerRebuild(t *testing.T) {
	cacheStub := &peerRebuildCache{
		reportKey: "waste:report:bldg-1",
		peerBody:  []byte(`{"building_id":"peer-replica"}`),
		data:      map[string][]byte{},
	}
	srv, _ := newTestServerWithCache(t, cacheStub)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "peer-replica",
		"a replica that loses the rebuild lock must serve the winner's report")
}

func TestHandleLearningAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/learning", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "bldg-1")
}
