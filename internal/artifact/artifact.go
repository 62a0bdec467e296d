// Package artifact persists the trained model and its encoders.
package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

// Artifact kinds.
const (
	KindModel    = "demand_model"
	KindEncoders = "encoders"
)

// ErrNotFound is returned when either artifact has never been saved.
var ErrNotFound = errors.New("artifact not found")

// Bundle is everything needed to serve predictions.
type Bundle struct {
	Model    *model.LinearModel
	Encoders *encoding.EncoderSet
}

// Validate checks the bundle is complete and that the model was trained
// against the same vocabularies as the encoders.
func (b *Bundle) Validate() error {
	if b == nil || b.Model == nil || b.Encoders == nil {
		return errors.New("bundle is incomplete")
	}
	if err := b.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := b.Encoders.Validate(); err != nil {
		return fmt.Errorf("encoders: %w", err)
	}

	checks := []struct {
		feature int
		field   string
	}{
		{model.FeatureOrigin, encoding.FieldOrigin},
		{model.FeatureDestination, encoding.FieldDestination},
		{model.FeatureDayOfWeek, encoding.FieldDayOfWeek},
		{model.FeatureWeather, encoding.FieldWeather},
	}
	for _, c := range checks {
		if got, want := b.Encoders.Cardinality(c.field), b.Model.Cardinalities[c.feature]; got != want {
			return fmt.Errorf("%s has %d classes but the model expects %d", c.field, got, want)
		}
	}
	return nil
}

// Store defines the interface for artifact persistence.
type Store interface {
	// Load returns the most recently saved bundle.
	// Returns ErrNotFound if either artifact is missing.
	Load(ctx context.Context) (*Bundle, error)

	// Save persists both artifacts.
	Save(ctx context.Context, b *Bundle) error
}
