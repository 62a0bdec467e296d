package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"origin", "destination", "request_date", "day_of_week", "hour", "weather", "demand_count"}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Origin,
			r.Destination,
			r.Date,
			r.DayOfWeek,
			strconv.Itoa(r.Hour),
			r.Weather,
			strconv.Itoa(r.DemandCount),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
