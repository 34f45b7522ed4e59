package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	appcache "github.com/capermax-01/energy-waste-engine/internal/cache"

	"github.com/capermax-01/energy-waste-engine/internal/alerts"
	"github.com/capermax-01/energy-waste-engine/internal/ingest"
	"github.com/capermax-01/energy-waste-engine/internal/metrics"
	"github.com/capermax-01/energy-waste-engine/internal/models"
	"github.com/capermax-01/energy-waste-engine/internal/utils"
)

// maxGapBeforeFlag marks reporting holes worth surfacing to operators.
const maxGapBeforeFlag = 2 * time.Hour

// Rebuild-lock tuning for the cached building report. A replica that loses
// the SetNX race waits for the winner to publish before rebuilding itself.
const (
	reportRebuildTTL    = 5 * time.Second
	rebuildWaitInterval = 25 * time.Millisecond
	rebuildWaitAttempts = 10
)

type analyzeResponse struct {
	Report   models.AnalysisReport `json:"report"`
	DataGaps []ingest.Gap          `json:"data_gaps,omitempty"`
}

// handleAnalyze ingests a reading batch (JSON array, or CSV when the request
// says so) and runs one full analysis pass.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var (
		res ingest.Result
		err error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "csv") {
		res, err = s.reader.ReadCSV(r.Body)
	} else {
		res, err = s.reader.ReadJSON(r.Body)
	}
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), res.Readings)
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	report.ReadingsSkipped += res.RowsDropped
	metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeSuccess)

	// New alerts invalidate any cached building report.
	if err := s.cache.Del(r.Context(), s.reportCacheKey()); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}

	s.writeJSON(w, http.StatusOK, analyzeResponse{
		Report:   report,
		DataGaps: ingest.DetectGaps(res.Readings, maxGapBeforeFlag),
	})
}

// handleFeedback records one operator verdict and returns the updated
// learning state.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.feedback", "decode feedback body", err))
		return
	}
	switch fb.Outcome {
	case models.FeedbackTruePositive, models.FeedbackFalsePositive, models.FeedbackFalseNegative:
	default:
		s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.feedback", "unknown feedback_type "+string(fb.Outcome), nil))
		return
	}
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = time.Now()
	}

	s.controller.SubmitFeedback(fb)
	metrics.RecordFeedback(string(fb.Outcome))
	s.writeJSON(w, http.StatusOK, s.controller.LearningSummary())
}

// handleListAlerts lists alerts filtered by query parameters.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AlertFilter{
		Floor:          q.Get("floor"),
		DeviceCategory: q.Get("category"),
		MinSeverity:    models.Severity(q.Get("min_severity")),
		Status:         models.AlertStatus(q.Get("status")),
	}
	if raw := q.Get("min_annual_cost"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.alerts", "invalid min_annual_cost", err))
			return
		}
		filter.MinAnnualCostINR = v
	}

	list, err := s.reporter.FilterAlerts(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"alerts": list, "count": len(list)})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.store.GetAlert(r.Context(), r.PathValue("id"))
	if errors.Is(err, alerts.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, alert)
}

type alertUpdateRequest struct {
	Status     models.AlertStatus `json:"status"`
	AssignedTo string             `json:"assigned_to"`
	Note       string             `json:"note"`
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.alerts", "decode alert update", err))
		return
	}
	alert, err := alerts.UpdateAlertStatus(r.Context(), s.store, r.PathValue("id"), req.Status, req.AssignedTo, req.Note)
	if errors.Is(err, alerts.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendations(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs, "count": len(recs)})
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

func (s *Server) handleApproveRecommendation(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.recommendations", "decode approve body", err))
		return
	}
	rec, err := alerts.ApproveRecommendation(r.Context(), s.store, r.PathValue("id"), req.ApprovedBy)
	if errors.Is(err, alerts.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

type completeRequest struct {
	ActualSavingsINR *float64 `json:"actual_savings_inr"`
}

func (s *Server) handleCompleteRecommendation(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, utils.NewAppError("api.recommendations", "decode complete body", err))
		return
	}
	rec, err := alerts.CompleteRecommendation(r.Context(), s.store, r.PathValue("id"), req.ActualSavingsINR)
	if errors.Is(err, alerts.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleReport serves the building rollup, cached for reportTTL. On a miss
// the rebuild runs single-flight across replicas: SetNX elects one builder,
// the rest poll the cache for its result.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := s.reportCacheKey()
	if cached, err := s.cache.Get(ctx, key); err == nil {
		s.writeRawJSON(w, cached)
		return
	} else if !errors.Is(err, appcache.ErrCacheMiss) {
		s.logger.Warn("report cache read failed", slog.Any("error", err))
	}

	lockKey := key + ":rebuild"
	acquired, err := s.cache.SetNX(ctx, lockKey, []byte("1"), reportRebuildTTL)
	if err != nil {
		s.logger.Warn("report rebuild lock failed", slog.Any("error", err))
		acquired = true
	}
	if !acquired {
		for i := 0; i < rebuildWaitAttempts; i++ {
			time.Sleep(rebuildWaitInterval)
			if cached, err := s.cache.Get(ctx, key); err == nil {
				s.writeRawJSON(w, cached)
				return
			}
		}
		// The elected builder never published; rebuild here after all.
	}

	report, err := s.reporter.BuildReport(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.cache.Set(ctx, key, body, s.reportTTL); err != nil {
		s.logger.Warn("report cache write failed", slog.Any("error", err))
	}
	if acquired {
		if err := s.cache.Del(ctx, lockKey); err != nil {
			s.logger.Warn("report rebuild unlock failed", slog.Any("error", err))
		}
	}

	s.writeRawJSON(w, body)
}

func (s *Server) writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleLearning(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.LearningSummary())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"building": s.buildingID,
	})
}

func (s *Server) reportCacheKey() string {
	return "waste:report:" + s.buildingID
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
