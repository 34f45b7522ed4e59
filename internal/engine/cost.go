package engine

import "errors"

// CostModel converts wasted energy into monetary loss at a flat tariff.
// Time-of-use pricing is deliberately out of scope.
type CostModel struct {
	TariffINRPerKWh float64
}

// NewCostModel validates the tariff at construction time; a non-positive
// tariff is a configuration error, not a data-quality issue.
func NewCostModel(tariffINRPerKWh float64) (CostModel, error) {
	if tariffINRPerKWh <= 0 {
		return CostModel{}, errors.New("tariff must be positive")
	}
	return CostModel{TariffINRPerKWh: tariffINRPerKWh}, nil
}

// Costs returns the daily, monthly, and annual loss for the given daily
// wasted energy. All values are non-negative because excess power is floored
// at zero upstream.
func (c CostModel) Costs(dailyWastedKWh float64) (daily, monthly, annual float64) {
	if dailyWastedKWh < 0 {
		dailyWastedKWh = 0
	}
	daily = dailyWastedKWh * c.TariffINRPerKWh
	monthly = daily * 30
	annual = daily * 365
	return daily, monthly, annual
}
