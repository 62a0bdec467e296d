// Package dataset simulates historical ride requests and aggregates them into
// the demand counts the model is trained on.
package dataset

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Route is an origin and destination pair.
type Route struct {
	Origin      string
	Destination string
}

// DefaultRoutes are the corridors the simulation draws from.
var DefaultRoutes = []Route{
	{"Chennai", "Bangalore"},
	{"Chennai", "Coimbatore"},
	{"Bangalore", "Chennai"},
	{"Bangalore", "Hyderabad"},
	{"Mumbai", "Pune"},
	{"Delhi", "Jaipur"},
}

// Weather values and the probability of drawing each.
var (
	WeatherOptions = []string{"sunny", "cloudy", "rainy"}
	weatherWeights = []float64{0.60, 0.25, 0.15}

	passengerWeights = []float64{0.40, 0.35, 0.15, 0.10}
)

// Request is one simulated ride request.
type Request struct {
	Origin         string
	Destination    string
	Date           time.Time
	DayOfWeek      string
	Hour           int
	PassengerCount int
	Weather        string
	Fulfilled      bool
}

// Row is the number of requests sharing a route, date, hour and weather.
type Row struct {
	Origin      string
	Destination string
	Date        string
	DayOfWeek   string
	Hour        int
	Weather     string
	DemandCount int
}

// Config controls the simulation.
type Config struct {
	// Routes to sample from. Default: DefaultRoutes.
	Routes []Route

	// Requests is the number of raw requests before boosts and drops.
	// Default: 10000
	Requests int

	// Start and End bound the request dates (inclusive).
	// Default: 2024-01-01 to 2024-06-30.
	Start time.Time
	End   time.Time

	// WeekendBoost is the fraction of Friday/Saturday requests duplicated.
	// Zero selects the default of 0.5; a negative value disables the boost.
	WeekendBoost float64

	// RainyDrop is the fraction of rainy requests removed.
	// Zero selects the default of 0.3; a negative value disables the drop.
	RainyDrop float64

	// Seed makes the simulation reproducible.
	Seed uint64
}

// DefaultConfig returns the settings the production model is trained with.
func DefaultConfig() Config {
	return Config{
		Routes:       DefaultRoutes,
		Requests:     10_000,
		Start:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		WeekendBoost: 0.5,
		RainyDrop:    0.3,
		Seed:         42,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.Routes) == 0 {
		c.Routes = d.Routes
	}
	if c.Requests <= 0 {
		c.Requests = d.Requests
	}
	if c.Start.IsZero() {
		c.Start = d.Start
	}
	if c.End.IsZero() || c.End.Before(c.Start) {
		c.End = c.Start.Add(d.End.Sub(d.Start))
	}
	c.WeekendBoost = fractionOrDefault(c.WeekendBoost, d.WeekendBoost)
	c.RainyDrop = fractionOrDefault(c.RainyDrop, d.RainyDrop)
	return c
}

// fractionOrDefault maps 0 to def, negatives to 0 and caps v at 1.
func fractionOrDefault(v, def float64) float64 {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	default:
		return min(v, 1)
	}
}

// Generator produces simulated requests.
type Generator struct {
	cfg       Config
	rng       *rand.Rand
	weather   distuv.Categorical
	passenger distuv.Categorical
}

// NewGenerator creates a Generator. Two generators with the same Config
// produce identical output.
func NewGenerator(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &Generator{
		cfg:       cfg,
		rng:       rand.New(src),
		weather:   distuv.NewCategorical(weatherWeights, src),
		passenger: distuv.NewCategorical(passengerWeights, src),
	}
}

// Requests simulates the raw request log, including the weekend boost and
// the rainy-day reduction.
func (g *Generator) Requests() []Request {
	days := int(g.cfg.End.Sub(g.cfg.Start).Hours() / 24)

	requests := make([]Request, 0, g.cfg.Requests)
	for range g.cfg.Requests {
		route := g.cfg.Routes[g.rng.IntN(len(g.cfg.Routes))]
		date := g.cfg.Start.AddDate(0, 0, g.rng.IntN(days+1))
		weather := WeatherOptions[int(g.weather.Rand())]

		requests = append(requests, Request{
			Origin:         route.Origin,
			Destination:    route.Destination,
			Date:           date,
			DayOfWeek:      date.Weekday().String(),
			Hour:           g.pickHour(),
			PassengerCount: int(g.passenger.Rand()) + 1,
			Weather:        weather,
			Fulfilled:      weather != "rainy" || g.rng.Float64() > 0.30,
		})
	}

	// Friday and Saturday see more traffic.
	weekend := g.sample(requests, g.cfg.WeekendBoost, func(r Request) bool {
		return r.Date.Weekday() == time.Friday || r.Date.Weekday() == time.Saturday
	})
	for _, i := range weekend {
		requests = append(requests, requests[i])
	}

	// Rain suppresses demand.
	dropped := make(map[int]struct{})
	for _, i := range g.sample(requests, g.cfg.RainyDrop, func(r Request) bool { return r.Weather == "rainy" }) {
		dropped[i] = struct{}{}
	}
	kept := requests[:0:0]
	for i, r := range requests {
		if _, ok := dropped[i]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// pickHour favours the morning (8-10) and evening (17-20) peaks half the time.
func (g *Generator) pickHour() int {
	if g.rng.Float64() < 0.5 {
		if g.rng.Float64() < 0.5 {
			return 8 + g.rng.IntN(3)
		}
		return 17 + g.rng.IntN(4)
	}
	return g.rng.IntN(24)
}

// sample returns the indices of a random frac of the requests matching keep.
func (g *Generator) sample(requests []Request, frac float64, keep func(Request) bool) []int {
	var idx []int
	for i, r := range requests {
		if keep(r) {
			idx = append(idx, i)
		}
	}
	g.rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
	n := int(math.Round(frac * float64(len(idx))))
	idx = idx[:n]
	slices.Sort(idx)
	return idx
}

type groupKey struct {
	origin, destination, date, day string
	hour                           int
	weather                        string
}

// Aggregate counts requests per (origin, destination, date, day, hour, weather).
// Rows are sorted by those keys.
func Aggregate(requests []Request) []Row {
	counts := make(map[groupKey]int)
	for _, r := range requests {
		k := groupKey{
			origin:      r.Origin,
			destination: r.Destination,
			date:        r.Date.Format(time.DateOnly),
			day:         r.DayOfWeek,
			hour:        r.Hour,
			weather:     r.Weather,
		}
		counts[k]++
	}

	rows := make([]Row, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, Row{
			Origin:      k.origin,
			Destination: k.destination,
			Date:        k.date,
			DayOfWeek:   k.day,
			Hour:        k.hour,
			Weather:     k.weather,
			DemandCount: n,
		})
	}
	slices.SortFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.Origin, b.Origin),
			cmp.Compare(a.Destination, b.Destination),
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.DayOfWeek, b.DayOfWeek),
			cmp.Compare(a.Hour, b.Hour),
			cmp.Compare(a.Weather, b.Weather),
		)
	})
	return rows
}

// Generate runs the simulation and aggregates the result.
func Generate(cfg Config) []Row {
	return Aggregate(NewGenerator(cfg).Requests())
}
