package validator

import (
	"math"
	"testing"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullValues() domain.Values {
	return domain.Values{
		Temperature: domain.Float(21.5),
		Humidity:    domain.Float(45),
		PM25:        domain.Float(12),
		PM10:        domain.Float(20),
		CO2:         domain.Float(600),
		TVOC:        domain.Float(150),
	}
}

func TestValidate_AllInRange(t *testing.T) {
	require.NoError(t, NewValidator().Validate(fullValues()))
}

func TestValidate_BoundsAreInclusive(t *testing.T) {
	v := NewValidator()
	for f, r := range Ranges {
		low := domain.Values{}
		low.Set(f, domain.Float(r.Min))
		assert.NoError(t, v.Validate(low), "min of %s", f)

		high := domain.Values{}
		high.Set(f, domain.Float(r.Max))
		assert.NoError(t, v.Validate(high), "max of %s", f)
	}
}

func TestValidate_SingleFieldOutOfRangeRejectsAll(t *testing.T) {
	v := NewValidator()
	for f, r := range Ranges {
		below := fullValues()
		below.Set(f, domain.Float(r.Min-0.01))
		err := v.Validate(below)
		require.ErrorIs(t, err, domain.ErrOutOfRange, "below %s", f)
		assert.Contains(t, err.Error(), string(f))

		above := fullValues()
		above.Set(f, domain.Float(r.Max+0.01))
		assert.ErrorIs(t, v.Validate(above), domain.ErrOutOfRange, "above %s", f)
	}
}

func TestValidate_NaNRejected(t *testing.T) {
	values := domain.Values{Humidity: domain.Float(math.NaN())}
	assert.ErrorIs(t, NewValidator().Validate(values), domain.ErrOutOfRange)
}

func TestValidate_EmptyRejected(t *testing.T) {
	assert.ErrorIs(t, NewValidator().Validate(domain.Values{}), domain.ErrEmptyPayload)
}

func TestValidate_PartialAccepted(t *testing.T) {
	values := domain.Values{CO2: domain.Float(4200)}
	assert.NoError(t, NewValidator().Validate(values))
}
