package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

func TestDefault_Loads(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	assert.Contains(t, tbl.Industries(), "제조업")
	assert.NotContains(t, tbl.Industries(), DefaultProfile)
}

func TestLookup_FallsBackToDefault(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	for _, industry := range []string{"", "unknown", "우주항공", "default"} {
		t.Run(industry, func(t *testing.T) {
			p, matched := tbl.Lookup(industry)
			assert.False(t, matched)
			assert.Equal(t, DefaultProfile, p.Name)
		})
	}
}

func TestLookup_NormalizesInput(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	// Decomposed Hangul from some browsers must still match.
	p, matched := tbl.Lookup("  " + norm.NFD.String("제조업") + " ")
	require.True(t, matched)
	assert.Equal(t, "제조업", p.Name)

	p, matched = tbl.Lookup("Software")
	require.True(t, matched)
	assert.Equal(t, "IT/소프트웨어", p.Name)
}

func TestEveryIndicatorResolves(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	for _, c := range []*catalog.Catalog{catalog.Full(), catalog.Simplified()} {
		for _, industry := range append(tbl.Industries(), DefaultProfile) {
			p, _ := tbl.Lookup(industry)
			for _, key := range c.Indicators() {
				cat, _ := c.CategoryOf(key)
				v := p.Indicator(key, cat)
				assert.True(t, v > 0 && v <= 100, "%s %s = %v", industry, key, v)
			}
		}
	}
}

func TestIndicatorOverride(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	p, _ := tbl.Lookup("제조업")
	assert.InDelta(t, catalog.ToCanonical(3.0), p.Indicator("currentAI_3", catalog.CurrentAI), 1e-9)
	assert.InDelta(t, catalog.ToCanonical(2.5), p.Indicator("currentAI_4", catalog.CurrentAI), 1e-9)
}

func TestSizeOffset(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	tests := []struct {
		bucket string
		raw    float64
	}{
		{"1-10", -0.3},
		{"1-10명", -0.3},
		{"11 ~ 50명", -0.15},
		{"51-100", 0},
		{"1,000명 이상", 0.2},
		{"1000+", 0.2},
		{"unknown", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			assert.InDelta(t, catalog.DeltaToCanonical(tt.raw), tbl.SizeOffset(tt.bucket), 1e-9)
		})
	}
	assert.Equal(t, "1-10", tbl.Buckets()[0])
}

func TestLoad_RejectsOutOfRange(t *testing.T) {
	_, err := Load([]byte(`
profiles:
  default:
    categories:
      currentAI: 7
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside 1-5")
}

func TestLoad_RequiresCompleteDefault(t *testing.T) {
	_, err := Load([]byte(`
profiles:
  default:
    categories:
      currentAI: 3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default profile missing category")
}

func TestLoad_FillsMissingCategories(t *testing.T) {
	data := []byte(`
profiles:
  default:
    categories:
      businessFoundation: 3
      currentAI: 3
      organizationReadiness: 3
      techInfrastructure: 3
      goalClarity: 3
      executionCapability: 3
      aiCapability: 3
      practicalCapability: 3
  교육:
    categories:
      currentAI: 4
`)
	tbl, err := Load(data)
	require.NoError(t, err)

	p, matched := tbl.Lookup("교육")
	require.True(t, matched)
	assert.Equal(t, 75.0, p.Category(catalog.CurrentAI))
	assert.Equal(t, 50.0, p.Category(model.Category("goalClarity")))
}
