package validator

import (
	"fmt"
	"math"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range. NaN and infinities never do.
func (r Range) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// Ranges are the physical bounds for each quantity.
var Ranges = map[domain.Field]Range{
	domain.FieldTemperature: {Min: -50, Max: 50}, // °C
	domain.FieldHumidity:    {Min: 0, Max: 100},  // %
	domain.FieldPM25:        {Min: 0, Max: 500},  // µg/m³
	domain.FieldPM10:        {Min: 0, Max: 500},  // µg/m³
	domain.FieldCO2:         {Min: 0, Max: 5000}, // ppm
	domain.FieldTVOC:        {Min: 0, Max: 1000}, // ppb
}

// Validator checks value sets before they reach reconciliation.
type Validator struct {
	ranges map[domain.Field]Range
}

// NewValidator creates a validator using the standard physical ranges
func NewValidator() *Validator {
	return &Validator{ranges: Ranges}
}

// Validate rejects a value set that carries no quantity at all, or any
// quantity outside its range. A single bad field rejects the whole set.
func (v *Validator) Validate(values domain.Values) error {
	if values.Empty() {
		return fmt.Errorf("at least one measurement is required: %w", domain.ErrEmptyPayload)
	}

	for _, f := range domain.Fields {
		val := values.Get(f)
		if val == nil {
			continue
		}
		r := v.ranges[f]
		if !r.Contains(*val) {
			return fmt.Errorf("%s=%g outside [%g, %g]: %w", f, *val, r.Min, r.Max, domain.ErrOutOfRange)
		}
	}

	return nil
}
