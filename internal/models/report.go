package models

import "time"

// Issue is one human-readable waste finding inside an analysis report,
// aggregated per (device, waste type) for the current pass.
type Issue struct {
	Title          string        `json:"title"`
	Location       string        `json:"location"`
	DeviceID       string        `json:"device"`
	WasteType      WasteCategory `json:"waste_type"`
	TimePeriod     string        `json:"time_period"`
	ExtraEnergyKWh float64       `json:"extra_energy_kwh"`
	CostPerDayINR  float64       `json:"cost_per_day"`
	Action         string        `json:"action"`
	Reason         string        `json:"reason"`
	Severity       Severity      `json:"severity"`
}

// AnalysisReport is the complete output of one analyze() pass.
type AnalysisReport struct {
	TotalEnergyKWh  float64 `json:"total_energy_kwh"`
	WastedEnergyKWh float64 `json:"energy_wasted_kwh"`

	DailyLossINR   float64 `json:"daily_loss_inr"`
	MonthlyLossINR float64 `json:"monthly_loss_inr"`
	YearlyLossINR  float64 `json:"yearly_loss_inr"`

	// EfficiencyScore is 100 minus the waste percentage, clamped to [0,100].
	// An empty batch scores 100.
	EfficiencyScore int `json:"efficiency_score"`

	Issues          []Issue  `json:"issues"`
	AutomationRules []string `json:"automation_rules"`
	MainWasteSource string   `json:"main_waste_source"`

	ReadingsAnalyzed int `json:"readings_analyzed"`
	ReadingsSkipped  int `json:"readings_skipped"`
	ReadingsClipped  int `json:"readings_clipped"`

	GeneratedAt time.Time `json:"generated_at"`
}
