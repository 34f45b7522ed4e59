package adaptive

import (
	"testing"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

func TestProfileForDefaults(t *testing.T) {
	c := NewController(nil, "bldg-1")

	p := c.ProfileFor("HVAC_1", "hvac")
	if p.PeakThresholdPercent != 60 || p.OffPeakThresholdPercent != 30 || p.NightThresholdPercent != 20 {
		t.Fatalf("unexpected hvac defaults: %+v", p)
	}
	if p.MinDeviationW != 50 || p.MinHoursBetweenAlert != 24 {
		t.Fatalf("unexpected floor defaults: %+v", p)
	}

	q := c.ProfileFor("X_1", "unheard-of")
	if q.PeakThresholdPercent != 50 {
		t.Fatalf("unknown category should use defaults, got %+v", q)
	}
}

func TestSubmitFeedbackUpdatesMetrics(t *testing.T) {
	c := NewController(nil, "bldg-1")

	m := c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackTruePositive})
	if m.Precision != 1 {
		t.Fatalf("expected precision 1 after one TP, got %f", m.Precision)
	}
	m = c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackFalseNegative})
	if m.Recall != 0.5 {
		t.Fatalf("expected recall 0.5 after TP+FN, got %f", m.Recall)
	}
}

func TestMonotonicTightening(t *testing.T) {
	c := NewController(nil, "bldg-1")
	before := c.ProfileFor("HVAC_1", "hvac")

	c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackTruePositive})
	m := c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackFalsePositive})
	if m.Precision >= 0.6 {
		t.Fatalf("test setup expects precision below floor, got %f", m.Precision)
	}

	after := c.ProfileFor("HVAC_1", "hvac")
	if after.PeakThresholdPercent <= before.PeakThresholdPercent {
		t.Fatalf("peak threshold did not tighten: %f -> %f", before.PeakThresholdPercent, after.PeakThresholdPercent)
	}
	if after.OffPeakThresholdPercent <= before.OffPeakThresholdPercent {
		t.Fatalf("off-peak threshold did not tighten: %f -> %f", before.OffPeakThresholdPercent, after.OffPeakThresholdPercent)
	}

	m = c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackFalsePositive})
	again := c.ProfileFor("HVAC_1", "hvac")
	if again.PeakThresholdPercent <= after.PeakThresholdPercent {
		t.Fatalf("repeat FP should keep tightening: %f -> %f", after.PeakThresholdPercent, again.PeakThresholdPercent)
	}
}

func TestShouldAlertDampening(t *testing.T) {
	c := NewController(nil, "bldg-1")
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if !c.ShouldAlert("HVAC_1", "hvac", models.SeverityHigh, now) {
		t.Fatal("first alert should be allowed")
	}
	c.RecordAlert("HVAC_1", "hvac", now)

	if c.ShouldAlert("HVAC_1", "hvac", models.SeverityHigh, now.Add(2*time.Hour)) {
		t.Fatal("alert inside the re-alert window should be suppressed")
	}
	if !c.ShouldAlert("HVAC_1", "hvac", models.SeverityHigh, now.Add(25*time.Hour)) {
		t.Fatal("alert past the re-alert window should be allowed")
	}
}

func TestCriticalOverridesDampening(t *testing.T) {
	c := NewController(nil, "bldg-1")
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	c.RecordAlert("HVAC_1", "hvac", now)

	if !c.ShouldAlert("HVAC_1", "hvac", models.SeverityCritical, now.Add(time.Minute)) {
		t.Fatal("critical severity must override dampening")
	}
}

func TestF1GateSuppressesUnreliableDetector(t *testing.T) {
	c := NewController(nil, "bldg-1")
	// A single FP with no TP drives precision to zero and F1 below 0.5.
	c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackFalsePositive})

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if c.ShouldAlert("LIGHT_9", "lighting", models.SeverityHigh, now) {
		t.Fatal("low F1 should gate non-critical alerts")
	}
	if !c.ShouldAlert("LIGHT_9", "lighting", models.SeverityCritical, now) {
		t.Fatal("critical severity must override the F1 gate")
	}
}

func TestLearningSummary(t *testing.T) {
	c := NewController(nil, "bldg-7")
	c.ProfileFor("HVAC_1", "hvac")
	c.ProfileFor("LIGHT_1", "lighting")
	c.SubmitFeedback(models.Feedback{DeviceID: "HVAC_1", Outcome: models.FeedbackTruePositive})

	s := c.LearningSummary()
	if s.BuildingID != "bldg-7" {
		t.Fatalf("unexpected building id %s", s.BuildingID)
	}
	if s.AdaptiveThresholds != 2 {
		t.Fatalf("expected 2 profiles, got %d", s.AdaptiveThresholds)
	}
	if s.TotalFeedback != 1 {
		t.Fatalf("expected 1 feedback event, got %d", s.TotalFeedback)
	}
	if s.F1Score <= 0 {
		t.Fatalf("expected positive F1, got %f", s.F1Score)
	}
}
