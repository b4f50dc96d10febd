package main

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV exports the monthly series. Amounts are rounded to cents here and
// nowhere earlier.
func WriteCSV(w io.Writer, result ForecastResult) error {
	cw := csv.NewWriter(w)

	header := []string{"month", "year", "wealth", "contributions"}
	if result.MortgageSeries != nil {
		header = append(header, "mortgage_balance", "cumulative_interest", "paid_to_date", "net_worth")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	grid := TimeGrid(result.Params.StartYear, result.Series.Len())
	for m := range result.Series.Wealth {
		row := []string{
			strconv.Itoa(m),
			strconv.FormatFloat(grid[m], 'f', 4, 64),
			FormatCents(result.Series.Wealth[m]),
			FormatCents(result.Series.Contributions[m]),
		}
		if ms := result.MortgageSeries; ms != nil {
			row = append(row,
				FormatCents(ms.RemainingBalance[m]),
				FormatCents(ms.CumulativeInterest[m]),
				FormatCents(ms.PaidToDate[m]),
				FormatCents(result.NetWorth[m]),
			)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
