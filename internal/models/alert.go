package models

import "time"

// Severity captures alert priority levels.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank orders severities for filtering; unknown values rank lowest.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AlertStatus tracks the operator-facing lifecycle of an alert.
type AlertStatus string

const (
	AlertOpen          AlertStatus = "open"
	AlertAcknowledged  AlertStatus = "acknowledged"
	AlertInvestigating AlertStatus = "investigating"
	AlertResolved      AlertStatus = "resolved"
)

// Alert is one waste episode for a (device, waste type) pair. Repeat
// detections within the re-alert interval extend the existing alert instead
// of creating duplicates.
type Alert struct {
	ID          string        `json:"alert_id"`
	Severity    Severity      `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DeviceID    string        `json:"device_id"`
	Category    string        `json:"device_category"`
	Location    Location      `json:"location"`
	WasteType   WasteCategory `json:"waste_type"`

	DailyCostINR   float64 `json:"daily_cost_inr"`
	MonthlyCostINR float64 `json:"monthly_cost_inr"`
	AnnualCostINR  float64 `json:"annual_cost_inr"`

	WastedEnergyKWh float64 `json:"wasted_energy_kwh"`
	MeanExcessW     float64 `json:"mean_excess_w"`

	FirstDetected  time.Time `json:"first_detected"`
	LastDetected   time.Time `json:"last_detected"`
	DetectionCount int       `json:"detection_count"`

	Evidence          []string `json:"evidence"`
	OccupancyMismatch bool     `json:"occupancy_mismatch"`

	Status     AlertStatus `json:"status"`
	AssignedTo string      `json:"assigned_to,omitempty"`
	Notes      string      `json:"notes,omitempty"`

	RecommendationIDs []string `json:"recommendations"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecommendationType enumerates the remediation families.
type RecommendationType string

const (
	RecAutomation RecommendationType = "automation"
	RecMonitoring RecommendationType = "monitoring"
	RecBehavior   RecommendationType = "behavior"
)

// RecommendationStatus tracks implementation progress.
type RecommendationStatus string

const (
	RecProposed   RecommendationStatus = "proposed"
	RecApproved   RecommendationStatus = "approved"
	RecInProgress RecommendationStatus = "in_progress"
	RecCompleted  RecommendationStatus = "completed"
	RecRejected   RecommendationStatus = "rejected"
)

// Recommendation is one costed corrective action linked to an alert.
type Recommendation struct {
	ID      string             `json:"recommendation_id"`
	AlertID string             `json:"alert_id"`
	Type    RecommendationType `json:"type"`
	Title   string             `json:"title"`

	ActionSteps []string `json:"action_steps"`

	EstimatedAnnualSavingsINR float64 `json:"estimated_annual_savings_inr"`
	ImplementationCostINR     float64 `json:"implementation_cost_inr"`
	PaybackMonths             float64 `json:"payback_months"`
	ConfidencePercent         float64 `json:"confidence_percent"`

	Status           RecommendationStatus `json:"status"`
	ApprovedBy       string               `json:"approved_by,omitempty"`
	CompletionDate   *time.Time           `json:"completion_date,omitempty"`
	ActualSavingsINR *float64             `json:"actual_savings_inr,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ROIPercent returns annual savings over implementation cost. The +1 keeps
// zero-cost actions from dividing by zero.
func (r Recommendation) ROIPercent() float64 {
	return r.EstimatedAnnualSavingsINR / (r.ImplementationCostINR + 1) * 100
}

// BuildingReport rolls the current alert and recommendation sets up to
// building level. Recomputed on demand; trend fields stay zero because the
// core keeps no historical store.
type BuildingReport struct {
	BuildingID string    `json:"building_id"`
	ReportDate time.Time `json:"report_date"`

	TotalAlerts    int `json:"total_alerts"`
	CriticalAlerts int `json:"critical_alerts"`
	HighAlerts     int `json:"high_alerts"`
	OpenAlerts     int `json:"open_alerts"`

	TopWasteLeaks []Alert `json:"top_waste_leaks"`

	TotalMonthlyWasteINR      float64            `json:"total_monthly_waste_inr"`
	TotalAnnualWasteINR       float64            `json:"total_annual_waste_inr"`
	ProjectedAnnualSavingsINR float64            `json:"projected_annual_savings_inr"`
	WasteByCategory           map[string]float64 `json:"waste_by_category"`
	WasteByFloor              map[string]float64 `json:"waste_by_floor"`
	WasteByType               map[string]float64 `json:"waste_by_type"`

	TotalRecommendations    int     `json:"total_recommendations"`
	ApprovedRecommendations int     `json:"approved_recommendations"`
	ProjectedPaybackMonths  float64 `json:"projected_payback_months"`

	TrendVsLastMonthPercent float64 `json:"trend_vs_last_month_percent"`
	TrendVsLastYearPercent  float64 `json:"trend_vs_last_year_percent"`
}
