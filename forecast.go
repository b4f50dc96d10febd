package main

import (
	"fmt"
)

// ForecastResult is everything one forecast run produces
type ForecastResult struct {
	Params         SimulationParameters
	Mortgage       *MortgageParameters // nil without a mortgage
	Series         WealthSeries
	MortgageSeries *MortgageSeries // nil without a mortgage
	NetWorth       []float64       // Wealth minus remaining mortgage balance
	Targets        []TargetAchievement
	Millionaire    TargetAchievement
	TotalTaxPaid   float64
}

// YearSnapshot is the state at the first month of a year (and at the final month)
type YearSnapshot struct {
	Year               int
	Month              int
	Wealth             float64
	Contributions      float64
	Growth             float64 // Wealth above contributions
	NetWorth           float64
	MortgageBalance    float64
	CumulativeInterest float64
}

// RunForecast validates the inputs, then composes the wealth simulation, the
// optional mortgage amortization and the target evaluation on one month grid
func RunForecast(params SimulationParameters, mortgage *MortgageParameters, targets []float64) (ForecastResult, error) {
	if err := params.Validate(); err != nil {
		return ForecastResult{}, fmt.Errorf("simulation parameters: %w", err)
	}

	series := SimulateWealth(params)
	result := ForecastResult{
		Params:       params,
		Series:       series,
		Targets:      EvaluateTargets(series.Wealth, targets, params.StartYear, params.EndYear),
		Millionaire:  MillionaireMilestone(series.Wealth, params.StartYear, params.EndYear),
		TotalTaxPaid: TotalTaxPaid(params, series),
	}

	if mortgage != nil {
		schedule, err := AmortizeMortgage(*mortgage, series.Len())
		if err != nil {
			return ForecastResult{}, fmt.Errorf("mortgage parameters: %w", err)
		}
		m := *mortgage
		result.Mortgage = &m
		result.MortgageSeries = &schedule
	}
	result.NetWorth = NetWorth(series.Wealth, result.MortgageSeries)

	return result, nil
}

// RunForecastFromConfig runs a forecast for a loaded configuration
func RunForecastFromConfig(config *Config) (ForecastResult, error) {
	if err := config.Validate(); err != nil {
		return ForecastResult{}, err
	}
	var mortgage *MortgageParameters
	if config.HasMortgage() {
		m := config.MortgageParameters()
		mortgage = &m
	}
	return RunForecast(config.SimulationParameters(), mortgage, config.Targets)
}

// TotalContributed returns the deposits (starting wealth included) at the final month
func (r ForecastResult) TotalContributed() float64 {
	c := r.Series.Contributions
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}

// FinalNetWorth returns the net worth at the final month
func (r ForecastResult) FinalNetWorth() float64 {
	if len(r.NetWorth) == 0 {
		return 0
	}
	return r.NetWorth[len(r.NetWorth)-1]
}

// Snapshot returns the state at month m
func (r ForecastResult) Snapshot(m int) YearSnapshot {
	snap := YearSnapshot{
		Year:          r.Params.StartYear + m/MonthsPerYear,
		Month:         m,
		Wealth:        r.Series.Wealth[m],
		Contributions: r.Series.Contributions[m],
		NetWorth:      r.NetWorth[m],
	}
	snap.Growth = snap.Wealth - snap.Contributions
	if r.MortgageSeries != nil {
		snap.MortgageBalance = r.MortgageSeries.RemainingBalance[m]
		snap.CumulativeInterest = r.MortgageSeries.CumulativeInterest[m]
	}
	return snap
}

// YearlySnapshots returns one snapshot per year plus the final month
func (r ForecastResult) YearlySnapshots() []YearSnapshot {
	n := r.Series.Len()
	var snaps []YearSnapshot
	for m := 0; m < n; m += MonthsPerYear {
		snaps = append(snaps, r.Snapshot(m))
	}
	if last := n - 1; last > 0 && last%MonthsPerYear != 0 {
		snaps = append(snaps, r.Snapshot(last))
	}
	return snaps
}
