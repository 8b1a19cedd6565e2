// Package benchmark holds the static industry reference scores the gap
// analyzer compares submissions against.
package benchmark

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// DefaultProfile is the profile used when an industry has no entry.
const DefaultProfile = "default"

//go:embed benchmarks.yaml
var embedded []byte

// fileConfig mirrors benchmarks.yaml. Values are on the raw 1-5 scale.
type fileConfig struct {
	Profiles map[string]struct {
		Categories map[string]float64 `yaml:"categories"`
		Indicators map[string]float64 `yaml:"indicators"`
	} `yaml:"profiles"`
	Aliases     map[string]string  `yaml:"aliases"`
	SizeOffsets map[string]float64 `yaml:"size_offsets"`
}

// Profile is one industry's reference scores on the canonical scale.
type Profile struct {
	Name       string
	Categories map[model.Category]float64
	Indicators map[model.IndicatorKey]float64
}

// Category returns the reference score for a category.
func (p Profile) Category(c model.Category) float64 {
	return p.Categories[c]
}

// Indicator returns the reference score for an indicator: the override when
// one exists, otherwise the value of its category.
func (p Profile) Indicator(key model.IndicatorKey, c model.Category) float64 {
	if v, ok := p.Indicators[key]; ok {
		return v
	}
	return p.Categories[c]
}

// Table maps industries to profiles and employee buckets to size offsets.
type Table struct {
	profiles    map[string]Profile
	aliases     map[string]string
	sizeOffsets map[string]float64
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table built from the embedded benchmarks.yaml.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(embedded)
	})
	return defaultTable, defaultErr
}

// LoadFile reads a benchmark table from a YAML file on disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: read %s", path)
	}
	return Load(data)
}

// Load parses a benchmark table and validates it against both catalogs.
func Load(data []byte) (*Table, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "benchmark: parse table")
	}

	t := &Table{
		profiles:    make(map[string]Profile, len(fc.Profiles)),
		aliases:     make(map[string]string, len(fc.Aliases)),
		sizeOffsets: make(map[string]float64, len(fc.SizeOffsets)),
	}

	var errs []string
	for name, raw := range fc.Profiles {
		p := Profile{
			Name:       normalizeIndustry(name),
			Categories: make(map[model.Category]float64, len(raw.Categories)),
			Indicators: make(map[model.IndicatorKey]float64, len(raw.Indicators)),
		}
		for k, v := range raw.Categories {
			if v < catalog.RawMin || v > catalog.RawMax {
				errs = append(errs, fmt.Sprintf("%s.%s=%.2f outside 1-5", name, k, v))
				continue
			}
			p.Categories[model.Category(k)] = catalog.ToCanonical(v)
		}
		for k, v := range raw.Indicators {
			if v < catalog.RawMin || v > catalog.RawMax {
				errs = append(errs, fmt.Sprintf("%s.%s=%.2f outside 1-5", name, k, v))
				continue
			}
			p.Indicators[model.IndicatorKey(k)] = catalog.ToCanonical(v)
		}
		t.profiles[p.Name] = p
	}
	for alias, target := range fc.Aliases {
		t.aliases[strings.ToLower(normalizeIndustry(alias))] = normalizeIndustry(target)
	}
	for bucket, off := range fc.SizeOffsets {
		t.sizeOffsets[NormalizeBucket(bucket)] = catalog.DeltaToCanonical(off)
	}
	if len(errs) > 0 {
		return nil, eris.Errorf("benchmark: invalid values: %s", strings.Join(errs, "; "))
	}

	if err := t.Validate(catalog.Full(), catalog.Simplified()); err != nil {
		return nil, err
	}
	t.fillFromDefault()
	return t, nil
}

// Validate checks that the default profile covers every category of the
// given catalogs and that every alias points at a known profile.
func (t *Table) Validate(cats ...*catalog.Catalog) error {
	def, ok := t.profiles[DefaultProfile]
	if !ok {
		return eris.New("benchmark: missing default profile")
	}
	var errs []string
	for _, c := range cats {
		for _, cd := range c.Categories {
			if _, ok := def.Categories[cd.Key]; !ok {
				errs = append(errs, fmt.Sprintf("default profile missing category %s", cd.Key))
			}
		}
	}
	for alias, target := range t.aliases {
		if _, ok := t.profiles[target]; !ok {
			errs = append(errs, fmt.Sprintf("alias %q points at unknown profile %q", alias, target))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("benchmark: %s", strings.Join(errs, "; "))
	}
	return nil
}

// fillFromDefault copies default category values into profiles that omit
// them so every lookup resolves.
func (t *Table) fillFromDefault() {
	def := t.profiles[DefaultProfile]
	for name, p := range t.profiles {
		for c, v := range def.Categories {
			if _, ok := p.Categories[c]; !ok {
				p.Categories[c] = v
			}
		}
		t.profiles[name] = p
	}
}

// Lookup resolves an industry to its profile. matched is false when the
// default profile was used instead.
func (t *Table) Lookup(industry string) (p Profile, matched bool) {
	name := normalizeIndustry(industry)
	if name != "" && name != model.Unknown {
		if p, ok := t.profiles[name]; ok && name != DefaultProfile {
			return p, true
		}
		if target, ok := t.aliases[strings.ToLower(name)]; ok {
			return t.profiles[target], true
		}
	}
	return t.profiles[DefaultProfile], false
}

// SizeOffset returns the canonical-scale adjustment for an employee bucket.
// Unknown buckets get no adjustment.
func (t *Table) SizeOffset(bucket string) float64 {
	return t.sizeOffsets[NormalizeBucket(bucket)]
}

// Industries returns the named profiles, excluding the default, sorted.
func (t *Table) Industries() []string {
	out := make([]string, 0, len(t.profiles))
	for name := range t.profiles {
		if name != DefaultProfile {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Buckets returns the known employee buckets, sorted by offset.
func (t *Table) Buckets() []string {
	out := make([]string, 0, len(t.sizeOffsets))
	for b := range t.sizeOffsets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if t.sizeOffsets[out[i]] == t.sizeOffsets[out[j]] {
			return out[i] < out[j]
		}
		return t.sizeOffsets[out[i]] < t.sizeOffsets[out[j]]
	})
	return out
}

func normalizeIndustry(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// NormalizeBucket canonicalises employee bucket spellings such as
// "1,000명 이상" or "11 ~ 50명" to the table's keys ("1000+", "11-50").
func NormalizeBucket(s string) string {
	s = norm.NFC.String(s)
	s = strings.NewReplacer(" ", "", "명", "", ",", "", "~", "-", "이상", "+").Replace(s)
	return strings.TrimSpace(s)
}
