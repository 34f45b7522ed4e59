package models

import "time"

// FeedbackOutcome labels an operator's verdict on an alert.
type FeedbackOutcome string

const (
	FeedbackTruePositive  FeedbackOutcome = "true_positive"
	FeedbackFalsePositive FeedbackOutcome = "false_positive"
	FeedbackFalseNegative FeedbackOutcome = "false_negative"
)

// Feedback is one operator validation event for a device's alerting.
type Feedback struct {
	DeviceID    string          `json:"device_id"`
	AlertID     string          `json:"alert_id,omitempty"`
	Outcome     FeedbackOutcome `json:"feedback_type"`
	Note        string          `json:"note,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// AlertFilter narrows alert listings. Zero values mean "no constraint".
type AlertFilter struct {
	Floor            string
	DeviceCategory   string
	MinSeverity      Severity
	Status           AlertStatus
	MinAnnualCostINR float64
}

// AdaptationMetrics tracks detector quality from validated feedback. One
// instance exists per building; prior precision/recall survive when a
// denominator is zero.
type AdaptationMetrics struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// F1 balances precision and recall; zero when both are zero.
func (m AdaptationMetrics) F1() float64 {
	if m.Precision+m.Recall == 0 {
		return 0
	}
	return 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
}

// ThresholdProfile holds the adaptive detection thresholds for one device.
// Mutated only by the threshold controller.
type ThresholdProfile struct {
	DeviceID string `json:"device_id"`
	Category string `json:"device_category"`

	PeakThresholdPercent    float64 `json:"peak_threshold_percent"`
	OffPeakThresholdPercent float64 `json:"off_peak_threshold_percent"`
	NightThresholdPercent   float64 `json:"night_threshold_percent"`

	MinDeviationW        float64 `json:"min_deviation_w"`
	MinHoursBetweenAlert float64 `json:"min_hours_between_alerts"`

	LastUpdated   time.Time  `json:"last_updated"`
	LastAlertTime *time.Time `json:"last_alert_time,omitempty"`
}

// LearningSummary is the adaptation-state snapshot returned with feedback
// responses.
type LearningSummary struct {
	BuildingID         string            `json:"building_id"`
	AdaptiveThresholds int               `json:"adaptive_thresholds"`
	TotalFeedback      int               `json:"total_feedback"`
	Metrics            AdaptationMetrics `json:"metrics"`
	F1Score            float64           `json:"f1_score"`
}
