package demand

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Request field names as they appear on the wire.
const (
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldDayOfWeek   = "day_of_week"
	FieldHour        = "hour"
	FieldWeather     = "weather"
)

// RequiredFields lists every field a prediction request must carry, in the
// order missing fields are reported.
var RequiredFields = []string{FieldOrigin, FieldDestination, FieldDayOfWeek, FieldHour, FieldWeather}

// DaysOfWeek are the accepted day_of_week values.
var DaysOfWeek = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeatherOptions are the accepted weather values.
var WeatherOptions = []string{"sunny", "cloudy", "rainy"}

// Request is a prediction request after parsing.
type Request struct {
	Origin      string
	Destination string
	DayOfWeek   string
	Hour        int
	Weather     string
}

// Route returns the request's origin and destination.
func (r Request) Route() Route {
	return Route{Origin: r.Origin, Destination: r.Destination}
}

// Normalize trims every string field, lower-cases weather and checks hour,
// day_of_week and weather, in that order.
func (r Request) Normalize() (Request, error) {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.DayOfWeek = strings.TrimSpace(r.DayOfWeek)
	r.Weather = strings.ToLower(strings.TrimSpace(r.Weather))

	if r.Hour < 0 || r.Hour > 23 {
		return r, hourError()
	}
	if !slices.Contains(DaysOfWeek, r.DayOfWeek) {
		return r, fieldError(FieldDayOfWeek, CodeInvalid,
			"day_of_week must be one of "+strings.Join(DaysOfWeek, ", "))
	}
	if !slices.Contains(WeatherOptions, r.Weather) {
		return r, fieldError(FieldWeather, CodeInvalid,
			"weather must be one of "+strings.Join(WeatherOptions, ", "))
	}
	return r, nil
}

func hourError() *ValidationError {
	return fieldError(FieldHour, CodeOutOfRange, "hour must be an integer between 0 and 23")
}

// ParseRequest decodes a JSON prediction request and validates it.
// Checks run in a fixed order: JSON object, required fields, hour,
// day_of_week, weather.
func ParseRequest(body []byte) (Request, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return Request{}, ErrBadJSON
	}

	var missing []string
	for _, f := range RequiredFields {
		if v, ok := raw[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Request{}, missingFieldsError(missing)
	}

	hour, ok := parseHour(raw[FieldHour])
	if !ok {
		return Request{}, hourError()
	}

	req := Request{
		Origin:      stringify(raw[FieldOrigin]),
		Destination: stringify(raw[FieldDestination]),
		DayOfWeek:   stringify(raw[FieldDayOfWeek]),
		Hour:        hour,
		Weather:     stringify(raw[FieldWeather]),
	}
	return req.Normalize()
}

// parseHour accepts JSON integers, integral floats and numeric strings.
func parseHour(v any) (int, bool) {
	switch h := v.(type) {
	case float64:
		if math.IsInf(h, 0) || h != math.Trunc(h) || math.Abs(h) > 1e6 {
			return 0, false
		}
		return int(h), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
