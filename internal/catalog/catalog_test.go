package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

func TestFull_Cardinality(t *testing.T) {
	c := Full()
	assert.Equal(t, 45, c.Size())
	assert.Len(t, c.Indicators(), 45)
	assert.Len(t, c.Categories, 6)

	cat, ok := c.CategoryOf("currentAI_3")
	require.True(t, ok)
	assert.Equal(t, CurrentAI, cat)
	assert.Equal(t, "업무 자동화 도입", c.Label("currentAI_3"))
}

func TestSimplified_Cardinality(t *testing.T) {
	c := Simplified()
	assert.Equal(t, 20, c.Size())
	assert.Equal(t, model.VariantSimplified, c.Variant)

	cat, ok := c.CategoryOf(SimplifiedKey(PracticalCapability, "sales"))
	require.True(t, ok)
	assert.Equal(t, PracticalCapability, cat)
}

func TestIndicatorsAreUniqueAcrossCatalogs(t *testing.T) {
	seen := map[model.IndicatorKey]bool{}
	for _, c := range []*Catalog{Full(), Simplified()} {
		for _, k := range c.Indicators() {
			assert.False(t, seen[k], "duplicate indicator %s", k)
			seen[k] = true
		}
	}
}

func TestForVariant(t *testing.T) {
	assert.Equal(t, model.VariantSimplified, ForVariant(model.VariantSimplified).Variant)
	assert.Equal(t, model.VariantFull, ForVariant("").Variant)
}

func TestWeightedMean(t *testing.T) {
	c := Simplified()
	assert.InDelta(t, 50.0, c.WeightedMean(map[model.Category]float64{
		AICapability:        25,
		PracticalCapability: 75,
	}), 1e-9)

	weighted := c.WithWeights(map[string]float64{"aiCapability": 3})
	assert.InDelta(t, 37.5, weighted.WeightedMean(map[model.Category]float64{
		AICapability:        25,
		PracticalCapability: 75,
	}), 1e-9)

	assert.Equal(t, 0.0, c.WeightedMean(nil))
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(Full()))

	bad := Full().WithWeights(map[string]float64{"currentAI": -1})
	err := ValidateWeights(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currentAI weight must be a finite number >= 0")

	for _, w := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		err = ValidateWeights(Full().WithWeights(map[string]float64{"goalClarity": w}))
		require.Error(t, err, "weight %v", w)
		assert.Contains(t, err.Error(), "goalClarity weight must be a finite number >= 0")
	}

	zero := Simplified().WithWeights(map[string]float64{"aiCapability": 0, "practicalCapability": 0})
	err = ValidateWeights(zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight sum must be > 0")
}

func TestScaleConversion(t *testing.T) {
	assert.Equal(t, 0.0, ToCanonical(1))
	assert.Equal(t, 50.0, ToCanonical(3))
	assert.Equal(t, 87.5, ToCanonical(4.5))
	assert.Equal(t, 100.0, ToCanonical(5))
	assert.Equal(t, 4.5, FromCanonical(87.5))
	assert.Equal(t, 12.5, DeltaToCanonical(0.5))
	assert.Equal(t, 37.5, Round(37.499999999999993))
	assert.Equal(t, 12.5, Round(12.500000000000007))
	assert.Equal(t, 58.333333333, Round(175.0/3))
	assert.Equal(t, 0.0, Clamp(-3))
	assert.Equal(t, 100.0, Clamp(120))
	assert.True(t, ValidRaw(5))
	assert.False(t, ValidRaw(0))
}
