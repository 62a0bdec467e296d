// Package encoding maps categorical string values to the integer codes the
// demand model was trained on.
package encoding

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// Categorical field names, in feature vector order.
const (
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldDayOfWeek   = "day_of_week"
	FieldWeather     = "weather"
)

// Fields lists every categorical field the model expects an encoder for.
var Fields = []string{FieldOrigin, FieldDestination, FieldDayOfWeek, FieldWeather}

var (
	// ErrUnknownField is returned when no encoder was fitted for a field.
	// It means the service and the loaded artifacts disagree.
	ErrUnknownField = errors.New("unknown categorical field")

	// ErrEmptyVocabulary is returned when an encoder has no classes.
	ErrEmptyVocabulary = errors.New("encoder has an empty vocabulary")
)

// LabelEncoder assigns each distinct value seen at fit time the index it
// occupies in the sorted list of those values.
type LabelEncoder struct {
	classes []string
	codes   map[string]int
}

// Fit builds a LabelEncoder from raw training values. Duplicates are ignored.
func Fit(values []string) *LabelEncoder {
	classes := slices.Clone(values)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	return newLabelEncoder(classes)
}

// FromClasses rebuilds an encoder from a persisted class list.
// The list is re-sorted so codes stay consistent with Fit.
func FromClasses(classes []string) *LabelEncoder {
	return Fit(classes)
}

func newLabelEncoder(classes []string) *LabelEncoder {
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		codes[c] = i
	}
	return &LabelEncoder{classes: classes, codes: codes}
}

// Classes returns a copy of the fitted vocabulary in code order.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

// Len returns the vocabulary size.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Contains reports whether value was seen at fit time.
func (e *LabelEncoder) Contains(value string) bool {
	_, ok := e.codes[value]
	return ok
}

// Transform returns the code for value. Values outside the vocabulary map to
// the last class index and known is false. An empty encoder returns -1.
func (e *LabelEncoder) Transform(value string) (code int, known bool) {
	if c, ok := e.codes[value]; ok {
		return c, true
	}
	return len(e.classes) - 1, false
}

// EncoderSet holds one LabelEncoder per categorical field.
// It is never mutated after construction.
type EncoderSet struct {
	encoders map[string]*LabelEncoder
}

// NewEncoderSet wraps the given encoders. The map is copied.
func NewEncoderSet(encoders map[string]*LabelEncoder) *EncoderSet {
	m := make(map[string]*LabelEncoder, len(encoders))
	for field, enc := range encoders {
		m[field] = enc
	}
	return &EncoderSet{encoders: m}
}

// Encoder returns the encoder fitted for field.
func (s *EncoderSet) Encoder(field string) (*LabelEncoder, error) {
	enc, ok := s.encoders[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return enc, nil
}

// Encode returns the fit-time code of value for field, falling back to the
// last class index for values never seen during training.
func (s *EncoderSet) Encode(field, value string) (int, error) {
	enc, err := s.Encoder(field)
	if err != nil {
		return 0, err
	}
	if enc.Len() == 0 {
		return 0, fmt.Errorf("%w: %q", ErrEmptyVocabulary, field)
	}
	code, _ := enc.Transform(value)
	return code, nil
}

// Cardinality returns the vocabulary size for field, or 0 when the field is unknown.
func (s *EncoderSet) Cardinality(field string) int {
	if enc, ok := s.encoders[field]; ok {
		return enc.Len()
	}
	return 0
}

// Validate checks that every field in Fields has a non-empty encoder.
func (s *EncoderSet) Validate() error {
	for _, field := range Fields {
		enc, err := s.Encoder(field)
		if err != nil {
			return err
		}
		if enc.Len() == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyVocabulary, field)
		}
	}
	return nil
}

type encoderJSON struct {
	Classes []string `json:"classes"`
}

// MarshalJSON encodes the set as {"field": {"classes": [...]}}.
func (s *EncoderSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]encoderJSON, len(s.encoders))
	for field, enc := range s.encoders {
		out[field] = encoderJSON{Classes: enc.classes}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *EncoderSet) UnmarshalJSON(data []byte) error {
	var in map[string]encoderJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.encoders = make(map[string]*LabelEncoder, len(in))
	for field, enc := range in {
		s.encoders[field] = FromClasses(enc.Classes)
	}
	return nil
}
