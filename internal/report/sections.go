package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Titles maps each section to its display title.
var Titles = map[model.SectionKey]string{
	model.SectionCover:                    "AI 역량진단 보고서",
	model.SectionExecutiveSummary:         "경영진 요약",
	model.SectionCompanyInfo:              "기업 정보",
	model.SectionVisualizationData:        "진단 결과 한눈에 보기",
	model.SectionBehavioralHighlights:     "행동 특성 분석",
	model.SectionBenchmarkComparison:      "업계 벤치마크 비교",
	model.SectionSWOT:                     "SWOT 분석",
	model.SectionPriorityMatrix:           "우선순위 매트릭스",
	model.SectionMethodology:              "진단 방법론",
	model.SectionCurriculumRecommendation: "추천 교육 과정",
	model.SectionRoadmap:                  "실행 로드맵",
	model.SectionConclusion:               "결론",
}

var curriculum = map[model.Category]string{
	catalog.BusinessFoundation:    "AI 비즈니스 모델 설계 워크숍 (경영진)",
	catalog.CurrentAI:             "생성형 AI 업무 활용 실습 (전 직원)",
	catalog.OrganizationReadiness: "AI 전환 리더십 과정 (경영진, 팀장)",
	catalog.TechInfrastructure:    "데이터 관리와 클라우드 기초 (실무자)",
	catalog.GoalClarity:           "AI 과제 발굴과 KPI 설정 워크숍 (기획 담당)",
	catalog.ExecutionCapability:   "AI 파일럿 프로젝트 실행 과정 (실무 리더)",
	catalog.AICapability:          "프롬프트 엔지니어링 기초와 심화 (실무자)",
	catalog.PracticalCapability:   "업무 자동화 실전 과정 (실무자)",
}

// fallbackBody builds the deterministic body of a section.
func fallbackBody(key model.SectionKey, in Input) string {
	switch key {
	case model.SectionCover:
		return coverBody(in)
	case model.SectionExecutiveSummary:
		return summaryBody(in)
	case model.SectionCompanyInfo:
		return companyBody(in)
	case model.SectionVisualizationData:
		return visualizationBody(in)
	case model.SectionBehavioralHighlights:
		return behaviorBody(in)
	case model.SectionBenchmarkComparison:
		return benchmarkBody(in)
	case model.SectionSWOT:
		return swotBody(in)
	case model.SectionPriorityMatrix:
		return priorityBody(in)
	case model.SectionMethodology:
		return methodologyBody(in)
	case model.SectionCurriculumRecommendation:
		return curriculumBody(in)
	case model.SectionRoadmap:
		return roadmapBody(in)
	case model.SectionConclusion:
		return conclusionBody(in)
	}
	return ""
}

func coverBody(in Input) string {
	return fmt.Sprintf("%s AI 역량진단 결과\n진단 일자: %s",
		in.Submission.Company.Name, in.Submission.SubmittedAt.Format("2006년 1월 2일"))
}

func summaryBody(in Input) string {
	g := in.Gap
	var b strings.Builder
	fmt.Fprintf(&b, "%s의 AI 역량 종합 점수는 %.1f점으로 %s에 해당합니다.\n", in.Submission.Company.Name, g.OverallScore, g.Maturity.Label())
	fmt.Fprintf(&b, "업계 기준(%.1f점) 대비 %+.1f점 차이를 보입니다.\n", g.OverallBenchmark, g.OverallGap)
	if lowest, ok := lowestCategory(g); ok {
		fmt.Fprintf(&b, "가장 보완이 필요한 영역은 %s(%+.1f점)입니다.\n", in.Catalog.CategoryLabel(lowest.Category), lowest.Gap)
	}
	if len(g.Recommendations) > 0 {
		fmt.Fprintf(&b, "우선 권장 사항: %s", g.Recommendations[0])
	}
	return strings.TrimRight(b.String(), "\n")
}

func companyBody(in Input) string {
	c := in.Submission.Company
	var b strings.Builder
	fmt.Fprintf(&b, "회사명: %s\n업종: %s\n직원 수: %s\n매출 규모: %s", c.Name, c.Industry, c.EmployeeCount, c.Revenue)
	if in.Submission.Concerns != "" {
		fmt.Fprintf(&b, "\n주요 고민: %s", in.Submission.Concerns)
	}
	if in.Submission.ExpectedBenefits != "" {
		fmt.Fprintf(&b, "\n기대 효과: %s", in.Submission.ExpectedBenefits)
	}
	return b.String()
}

func visualizationBody(in Input) string {
	lines := make([]string, 0, len(in.Catalog.Categories))
	for _, def := range in.Catalog.Categories {
		cg, ok := in.Gap.CategoryGapFor(def.Key)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %.1f / 기준 %.1f", def.Label, cg.Current, cg.Benchmark))
	}
	return strings.Join(lines, "\n")
}

func behaviorBody(in Input) string {
	if len(in.Gap.Categories) == 0 {
		return "응답 데이터가 부족하여 행동 특성을 분석하지 못했습니다."
	}
	high, low := in.Gap.Categories[0], in.Gap.Categories[0]
	for _, cg := range in.Gap.Categories[1:] {
		if cg.Current > high.Current {
			high = cg
		}
		if cg.Current < low.Current {
			low = cg
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s 영역의 응답이 가장 높아(%.1f점) 조직이 이 분야에 상대적으로 익숙합니다.\n", in.Catalog.CategoryLabel(high.Category), high.Current)
	fmt.Fprintf(&b, "%s 영역은 %.1f점으로 가장 낮아 실행 경험이 부족한 것으로 보입니다.", in.Catalog.CategoryLabel(low.Category), low.Current)
	if n := len(in.Scores.Warnings); n > 0 {
		fmt.Fprintf(&b, "\n%d개 문항은 응답이 없거나 범위를 벗어나 보통(3점)으로 처리했습니다.", n)
	}
	return b.String()
}

func benchmarkBody(in Input) string {
	var b strings.Builder
	if in.Gap.ProfileFallback {
		b.WriteString("입력한 업종에 맞는 기준이 없어 일반 기준을 적용했습니다.\n")
	} else {
		fmt.Fprintf(&b, "%s 업계 기준을 적용했습니다.\n", in.Gap.Industry)
	}
	for _, cg := range sortedCategories(in.Gap) {
		fmt.Fprintf(&b, "%s: %+.1f점\n", in.Catalog.CategoryLabel(cg.Category), cg.Gap)
	}
	return strings.TrimRight(b.String(), "\n")
}

func swotBody(in Input) string {
	var b strings.Builder
	b.WriteString("강점: ")
	b.WriteString(indicatorList(in, in.Gap.Strengths, "뚜렷한 강점 지표 없음"))
	b.WriteString("\n약점: ")
	b.WriteString(indicatorList(in, in.Gap.Weaknesses, "뚜렷한 약점 지표 없음"))
	b.WriteString("\n기회: 생성형 AI 도구의 보급으로 적은 비용으로도 업무 혁신을 시작할 수 있습니다.")
	if in.Gap.OverallGap < 0 {
		b.WriteString("\n위협: 업계 평균보다 도입이 늦어 경쟁사와의 생산성 격차가 커질 수 있습니다.")
	} else {
		b.WriteString("\n위협: 현재의 우위를 유지하려면 지속적인 투자와 인재 확보가 필요합니다.")
	}
	return b.String()
}

func priorityBody(in Input) string {
	weak := in.Gap.Weaknesses
	if len(weak) == 0 {
		return "업계 기준보다 크게 낮은 지표가 없습니다. 강점 영역을 확장하는 과제를 우선 검토하십시오."
	}
	var b strings.Builder
	for i, ig := range weak {
		tier := "중기 과제"
		if i < 3 {
			tier = "즉시 개선"
		}
		fmt.Fprintf(&b, "%s: %s (%+.1f점)\n", tier, in.Catalog.Label(ig.Indicator), ig.Gap)
	}
	return strings.TrimRight(b.String(), "\n")
}

func methodologyBody(in Input) string {
	return fmt.Sprintf("%d개 문항에 대한 5점 척도 응답을 0~100점으로 환산하고, 영역별 평균과 가중 평균으로 종합 점수를 산출했습니다. "+
		"업계 기준은 업종 프로필에 기업 규모 보정(%+.1f점)을 적용했습니다.", in.Catalog.Size(), in.Gap.SizeAdjustment)
}

func curriculumBody(in Input) string {
	var lines []string
	for _, cg := range sortedCategories(in.Gap) {
		if cg.Gap >= 0 {
			break
		}
		if c, ok := curriculum[cg.Category]; ok {
			lines = append(lines, c)
		}
	}
	if len(lines) == 0 {
		return "현재 수준을 유지하고 확장하기 위해 심화 과정과 사내 강사 양성을 권장합니다."
	}
	return strings.Join(lines, "\n")
}

func roadmapBody(in Input) string {
	recs := in.Gap.Recommendations
	step := func(i int, fallback string) string {
		if i < len(recs) {
			return recs[i]
		}
		return fallback
	}
	return fmt.Sprintf("3개월: %s\n6개월: %s\n12개월: %s",
		step(0, "AI 도입 목표와 추진 조직을 정합니다."),
		step(1, "파일럿 프로젝트를 실행하고 성과를 측정합니다."),
		step(2, "성공 사례를 전사로 확산합니다."),
	)
}

func conclusionBody(in Input) string {
	return fmt.Sprintf("%s은(는) 현재 %s에 있습니다. 제안한 과제를 단계적으로 실행하면 업계 기준과의 격차를 줄일 수 있습니다. 상세 컨설팅이 필요하시면 담당자에게 문의해 주십시오.",
		in.Submission.Company.Name, in.Gap.Maturity.Label())
}

func indicatorList(in Input, gaps []model.IndicatorGap, empty string) string {
	if len(gaps) == 0 {
		return empty
	}
	n := min(len(gaps), 3)
	labels := make([]string, n)
	for i := range n {
		labels[i] = in.Catalog.Label(gaps[i].Indicator)
	}
	return strings.Join(labels, ", ")
}

// sortedCategories orders category gaps by gap ascending, then key.
func sortedCategories(g model.GapAnalysis) []model.CategoryGap {
	out := append([]model.CategoryGap(nil), g.Categories...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Gap != out[j].Gap {
			return out[i].Gap < out[j].Gap
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func lowestCategory(g model.GapAnalysis) (model.CategoryGap, bool) {
	cats := sortedCategories(g)
	if len(cats) == 0 {
		return model.CategoryGap{}, false
	}
	return cats[0], true
}
