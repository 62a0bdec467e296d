package demand

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HeatmapDays is the number of consecutive days covered by a heatmap.
const HeatmapDays = 7

// PopularRoutes are the corridors shown on the heatmap.
var PopularRoutes = []Route{
	{"Chennai", "Bangalore"},
	{"Chennai", "Coimbatore"},
	{"Bangalore", "Chennai"},
	{"Bangalore", "Hyderabad"},
	{"Mumbai", "Pune"},
	{"Delhi", "Jaipur"},
}

// PeakHours are the hours of interest shown on the heatmap.
var PeakHours = []int{8, 9, 17, 18, 19}

// HeatmapSize is the number of entries in every heatmap.
var HeatmapSize = HeatmapDays * len(PopularRoutes) * len(PeakHours) * len(WeatherOptions)

// HeatmapEntry is the predicted demand for one day, route, hour and weather.
type HeatmapEntry struct {
	Date    time.Time
	Day     string
	Route   Route
	Hour    int
	Weather string
	Demand  float64
	Level   Level
}

// Heatmap is a full grid of predictions.
type Heatmap struct {
	GeneratedAt time.Time
	Entries     []HeatmapEntry
}

type heatmapCell struct {
	index int
	entry HeatmapEntry
}

// cells enumerates the grid in output order: day, route, hour, weather.
func heatmapCells(start time.Time) []heatmapCell {
	cells := make([]heatmapCell, 0, HeatmapSize)
	for offset := range HeatmapDays {
		date := start.AddDate(0, 0, offset)
		for _, route := range PopularRoutes {
			for _, hour := range PeakHours {
				for _, weather := range WeatherOptions {
					cells = append(cells, heatmapCell{
						index: len(cells),
						entry: HeatmapEntry{
							Date:    date,
							Day:     date.Weekday().String(),
							Route:   route,
							Hour:    hour,
							Weather: weather,
						},
					})
				}
			}
		}
	}
	return cells
}

// Heatmap predicts demand for every popular route, peak hour and weather over
// the next HeatmapDays days starting today (UTC). Cells are evaluated
// concurrently; the result is always in grid order. A single failed cell
// fails the whole heatmap.
func (s *Service) Heatmap(ctx context.Context) (*Heatmap, error) {
	if !s.Loaded() {
		if s != nil {
			s.metrics.heatmap(outcomeUnavailable, 0)
		}
		return nil, ErrModelNotLoaded
	}

	ctx, span := s.tracer.Start(ctx, "demand.Heatmap")
	defer span.End()

	started := time.Now()
	now := s.clock().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cells := heatmapCells(today)

	entries, err := s.evaluateCells(ctx, cells)
	if err != nil {
		s.metrics.heatmap(outcomeError, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "heatmap failed")
		s.logger.Error().Err(err).Int("cells", len(cells)).Msg("heatmap error")
		return nil, err
	}

	s.metrics.heatmap(outcomeSuccess, time.Since(started))
	span.SetAttributes(attribute.Int("demand.heatmap.entries", len(entries)))

	return &Heatmap{GeneratedAt: s.clock().UTC(), Entries: entries}, nil
}

func (s *Service) evaluateCells(parent context.Context, cells []heatmapCell) ([]HeatmapEntry, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	entries := make([]HeatmapEntry, len(cells))
	jobs := make(chan heatmapCell)

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failErr  error
	)

	for range s.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				e := c.entry
				d, err := s.estimate(e.Route.Origin, e.Route.Destination, e.Day, e.Hour, e.Weather)
				if err != nil {
					failOnce.Do(func() {
						failErr = &InternalError{Op: "heatmap", Err: err}
						cancel()
					})
					continue
				}
				e.Demand = d
				e.Level = Tier(d)
				entries[c.index] = e
			}
		}()
	}

dispatch:
	for _, c := range cells {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if failErr != nil {
		return nil, failErr
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
