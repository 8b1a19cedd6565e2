// Package catalog defines the questionnaire indicators, their category
// partition, and the conversion between the raw 1-5 answer scale and the
// canonical 0-100 scale used everywhere past the input boundary.
package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Categories of the full questionnaire.
const (
	BusinessFoundation    model.Category = "businessFoundation"
	CurrentAI             model.Category = "currentAI"
	OrganizationReadiness model.Category = "organizationReadiness"
	TechInfrastructure    model.Category = "techInfrastructure"
	GoalClarity           model.Category = "goalClarity"
	ExecutionCapability   model.Category = "executionCapability"
)

// Categories of the simplified questionnaire.
const (
	AICapability        model.Category = "aiCapability"
	PracticalCapability model.Category = "practicalCapability"
)

// Indicator is one questionnaire item.
type Indicator struct {
	Key   model.IndicatorKey
	Label string
}

// CategoryDef is a category with its weight and ordered indicators.
type CategoryDef struct {
	Key        model.Category
	Label      string
	Weight     float64
	Indicators []Indicator
}

// Catalog is the fixed category -> indicator partition for one variant.
type Catalog struct {
	Variant    model.Variant
	Categories []CategoryDef

	byIndicator map[model.IndicatorKey]model.Category
	labels      map[model.IndicatorKey]string
}

func newCatalog(v model.Variant, cats []CategoryDef) *Catalog {
	c := &Catalog{
		Variant:     v,
		Categories:  cats,
		byIndicator: make(map[model.IndicatorKey]model.Category),
		labels:      make(map[model.IndicatorKey]string),
	}
	for _, cat := range cats {
		for _, ind := range cat.Indicators {
			c.byIndicator[ind.Key] = cat.Key
			c.labels[ind.Key] = ind.Label
		}
	}
	return c
}

// ForVariant returns the catalog for v. Unknown variants get the full catalog.
func ForVariant(v model.Variant) *Catalog {
	if v == model.VariantSimplified {
		return Simplified()
	}
	return Full()
}

// Size returns the number of indicators.
func (c *Catalog) Size() int {
	return len(c.byIndicator)
}

// Indicators returns every indicator key in catalog order.
func (c *Catalog) Indicators() []model.IndicatorKey {
	out := make([]model.IndicatorKey, 0, c.Size())
	for _, cat := range c.Categories {
		for _, ind := range cat.Indicators {
			out = append(out, ind.Key)
		}
	}
	return out
}

// CategoryOf returns the category an indicator belongs to.
func (c *Catalog) CategoryOf(key model.IndicatorKey) (model.Category, bool) {
	cat, ok := c.byIndicator[key]
	return cat, ok
}

// Category returns the definition for a category key.
func (c *Catalog) Category(key model.Category) (CategoryDef, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return CategoryDef{}, false
}

// Label returns the display label of an indicator, or the key itself.
func (c *Catalog) Label(key model.IndicatorKey) string {
	if l, ok := c.labels[key]; ok {
		return l
	}
	return string(key)
}

// CategoryLabel returns the display label of a category, or the key itself.
func (c *Catalog) CategoryLabel(key model.Category) string {
	if def, ok := c.Category(key); ok {
		return def.Label
	}
	return string(key)
}

// WeightSum returns the sum of all category weights.
func (c *Catalog) WeightSum() float64 {
	var sum float64
	for _, cat := range c.Categories {
		sum += cat.Weight
	}
	return sum
}

// WeightedMean averages per-category values with the catalog weights.
// Categories missing from values are skipped.
func (c *Catalog) WeightedMean(values map[model.Category]float64) float64 {
	var sum, weights float64
	for _, cat := range c.Categories {
		v, ok := values[cat.Key]
		if !ok {
			continue
		}
		sum += v * cat.Weight
		weights += cat.Weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// WithWeights returns a copy of the catalog with overridden category weights.
// Keys match category names case-insensitively since viper lowercases map
// keys. Keys that do not name a category are ignored.
func (c *Catalog) WithWeights(weights map[string]float64) *Catalog {
	lower := make(map[string]float64, len(weights))
	for k, w := range weights {
		lower[strings.ToLower(k)] = w
	}
	cats := make([]CategoryDef, len(c.Categories))
	copy(cats, c.Categories)
	for i := range cats {
		if w, ok := lower[strings.ToLower(string(cats[i].Key))]; ok {
			cats[i].Weight = w
		}
	}
	return newCatalog(c.Variant, cats)
}

// ValidateWeights checks that the category weights are usable.
func ValidateWeights(c *Catalog) error {
	var errs []string
	for _, cat := range c.Categories {
		if cat.Weight < 0 || math.IsNaN(cat.Weight) || math.IsInf(cat.Weight, 0) {
			errs = append(errs, fmt.Sprintf("%s weight must be a finite number >= 0", cat.Key))
		}
	}
	if c.WeightSum() <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("catalog: %s weights invalid: %s", c.Variant, strings.Join(errs, "; "))
	}
	return nil
}

func indicators(cat model.Category, labels ...string) []Indicator {
	out := make([]Indicator, len(labels))
	for i, l := range labels {
		out[i] = Indicator{
			Key:   model.IndicatorKey(fmt.Sprintf("%s_%d", cat, i+1)),
			Label: l,
		}
	}
	return out
}

// Full returns the 45-indicator catalog.
func Full() *Catalog {
	return newCatalog(model.VariantFull, []CategoryDef{
		{
			Key: BusinessFoundation, Label: "사업 기반", Weight: 1,
			Indicators: indicators(BusinessFoundation,
				"사업모델 명확성", "시장 포지셔닝", "고객 이해도", "수익 구조 안정성",
				"경쟁 우위", "성장 전략", "브랜드 인지도", "재무 건전성"),
		},
		{
			Key: CurrentAI, Label: "현재 AI 활용", Weight: 1,
			Indicators: indicators(CurrentAI,
				"AI 도구 사용 경험", "생성형 AI 업무 활용", "업무 자동화 도입", "데이터 기반 의사결정",
				"AI 활용 부서 범위", "AI 성과 측정", "AI 관련 투자", "AI 활용 정책"),
		},
		{
			Key: OrganizationReadiness, Label: "조직 준비도", Weight: 1,
			Indicators: indicators(OrganizationReadiness,
				"경영진 의지", "구성원 수용성", "변화관리 역량", "학습 문화",
				"전담 인력", "교육 체계", "협업 문화", "성과 보상 연계"),
		},
		{
			Key: TechInfrastructure, Label: "기술 인프라", Weight: 1,
			Indicators: indicators(TechInfrastructure,
				"IT 시스템 수준", "데이터 수집 체계", "데이터 품질", "클라우드 활용",
				"보안 체계", "시스템 연동성", "기술 지원 역량"),
		},
		{
			Key: GoalClarity, Label: "목표 명확성", Weight: 1,
			Indicators: indicators(GoalClarity,
				"AI 도입 목표", "우선순위 과제", "기대효과 정의", "KPI 설정",
				"예산 계획", "일정 계획", "이해관계자 합의"),
		},
		{
			Key: ExecutionCapability, Label: "실행 역량", Weight: 1,
			Indicators: indicators(ExecutionCapability,
				"프로젝트 관리", "파일럿 경험", "외부 파트너 활용", "의사결정 속도",
				"자원 배분", "성과 확산", "지속 개선"),
		},
	})
}

// SimplifiedSubKeys lists the nested answer keys of the simplified form in
// order. The flattened indicator key is "<group>_<subkey>".
var SimplifiedSubKeys = map[model.Category][]string{
	AICapability: {
		"understanding", "toolUsage", "promptSkill", "dataLiteracy", "automation",
		"ethics", "strategy", "investment", "education", "culture",
	},
	PracticalCapability: {
		"planning", "marketing", "sales", "customerService", "operations",
		"finance", "hr", "documentation", "reporting", "collaboration",
	},
}

var simplifiedLabels = map[model.Category][]string{
	AICapability: {
		"AI 이해도", "AI 도구 활용", "프롬프트 역량", "데이터 리터러시", "업무 자동화",
		"AI 윤리 인식", "AI 전략", "AI 투자 의향", "AI 교육", "AI 친화 문화",
	},
	PracticalCapability: {
		"기획", "마케팅", "영업", "고객 응대", "운영 관리",
		"재무 관리", "인사 관리", "문서 작성", "보고 체계", "협업",
	},
}

// SimplifiedKey flattens a nested simplified answer into an indicator key.
func SimplifiedKey(group model.Category, sub string) model.IndicatorKey {
	return model.IndicatorKey(string(group) + "_" + sub)
}

// Simplified returns the 20-indicator catalog.
func Simplified() *Catalog {
	build := func(cat model.Category) []Indicator {
		subs := SimplifiedSubKeys[cat]
		labels := simplifiedLabels[cat]
		out := make([]Indicator, len(subs))
		for i, s := range subs {
			out[i] = Indicator{Key: SimplifiedKey(cat, s), Label: labels[i]}
		}
		return out
	}
	return newCatalog(model.VariantSimplified, []CategoryDef{
		{Key: AICapability, Label: "AI 활용 역량", Weight: 1, Indicators: build(AICapability)},
		{Key: PracticalCapability, Label: "실무 역량", Weight: 1, Indicators: build(PracticalCapability)},
	})
}
