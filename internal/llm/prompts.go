package llm

import (
	"fmt"
	"strings"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

const systemPrompt = `당신은 중소기업의 AI 도입을 돕는 경영 컨설턴트입니다. 제공된 진단 점수와 업계 기준만 근거로 한국어로 작성하고, 점수를 새로 만들거나 바꾸지 마십시오.`

const analysisInstructions = `위 진단 결과를 바탕으로 AI 역량진단 보고서의 본문을 작성하십시오.
다음 순서로 구성하고 각 항목을 충분히 구체적으로 서술하십시오.
1. 종합 진단 요약
2. 영역별 현황과 업계 대비 격차 해석
3. 강점 및 약점 분석
4. 우선 추진 과제와 기대 효과
5. 단계별 실행 로드맵 (3개월, 6개월, 12개월)
6. 교육 및 역량 강화 제안
분량은 최소 5,000자 이상으로 작성하십시오.`

// sectionInstructions asks for one report section.
var sectionInstructions = map[model.SectionKey]string{
	model.SectionCover:                    "보고서 표지에 들어갈 한 줄 제목과 2문장 이내의 부제를 작성하십시오.",
	model.SectionCompanyInfo:              "기업 정보와 주요 고민을 바탕으로 기업 현황을 3~4문장으로 정리하십시오.",
	model.SectionVisualizationData:        "영역별 점수와 업계 기준을 비교하는 차트를 독자가 읽는 방법을 설명하고 눈에 띄는 패턴 2~3개를 짚으십시오.",
	model.SectionMethodology:              "진단 방법(문항 구성, 5점 척도의 0~100점 환산, 업종 및 규모 보정)을 간결하게 설명하십시오.",
	model.SectionExecutiveSummary:         "경영진 요약을 5~7문장으로 작성하십시오. 종합 점수, 성숙도, 가장 큰 격차 영역을 반드시 언급하십시오.",
	model.SectionBehavioralHighlights:     "응답 패턴에서 드러나는 조직의 행동 특성을 3~5개 항목으로 정리하십시오.",
	model.SectionBenchmarkComparison:      "업계 기준 대비 영역별 격차를 해석하고, 격차가 큰 순서로 의미를 설명하십시오.",
	model.SectionSWOT:                     "강점, 약점, 기회, 위협을 각각 2~3개 항목으로 작성하십시오.",
	model.SectionPriorityMatrix:           "개선 과제를 시급성과 파급효과 기준으로 4분면에 배치하여 설명하십시오.",
	model.SectionCurriculumRecommendation: "약점 영역을 보완할 교육 과정을 대상(경영진, 실무자)별로 추천하십시오.",
	model.SectionRoadmap:                  "3개월, 6개월, 12개월 단위의 실행 로드맵을 작성하십시오.",
	model.SectionConclusion:               "진단 결과를 마무리하는 결론과 다음 단계를 3~4문장으로 작성하십시오.",
}

// AnalysisPrompt builds the long-form narrative prompt for a submission.
func AnalysisPrompt(cat *catalog.Catalog, sub model.Submission, scores model.Scores, gap model.GapAnalysis) string {
	var b strings.Builder
	writeContext(&b, cat, sub, scores, gap)
	b.WriteString("\n")
	b.WriteString(analysisInstructions)
	return b.String()
}

// SectionPrompt builds the prompt for one expandable section.
func SectionPrompt(key model.SectionKey, cat *catalog.Catalog, sub model.Submission, scores model.Scores, gap model.GapAnalysis) string {
	var b strings.Builder
	writeContext(&b, cat, sub, scores, gap)
	b.WriteString("\n")
	b.WriteString(sectionInstructions[key])
	b.WriteString("\n제목 없이 본문만 작성하십시오.")
	return b.String()
}

func writeContext(b *strings.Builder, cat *catalog.Catalog, sub model.Submission, scores model.Scores, gap model.GapAnalysis) {
	b.WriteString("[기업 정보]\n")
	fmt.Fprintf(b, "- 회사명: %s\n", sub.Company.Name)
	fmt.Fprintf(b, "- 업종: %s\n", sub.Company.Industry)
	fmt.Fprintf(b, "- 직원 수: %s\n", sub.Company.EmployeeCount)
	fmt.Fprintf(b, "- 매출 규모: %s\n", sub.Company.Revenue)
	if sub.Concerns != "" {
		fmt.Fprintf(b, "- 주요 고민: %s\n", sub.Concerns)
	}
	if sub.ExpectedBenefits != "" {
		fmt.Fprintf(b, "- 기대 효과: %s\n", sub.ExpectedBenefits)
	}

	b.WriteString("\n[진단 결과] (0~100점)\n")
	fmt.Fprintf(b, "- 종합 점수: %.1f (업계 기준 %.1f, 차이 %+.1f)\n", gap.OverallScore, gap.OverallBenchmark, gap.OverallGap)
	fmt.Fprintf(b, "- 성숙도: %s\n", gap.Maturity.Label())
	if gap.ProfileFallback {
		b.WriteString("- 업종 기준: 일반 기준 적용\n")
	}
	for _, def := range cat.Categories {
		cg, ok := gap.CategoryGapFor(def.Key)
		if !ok {
			continue
		}
		fmt.Fprintf(b, "- %s: %.1f (기준 %.1f, 차이 %+.1f)\n", def.Label, cg.Current, cg.Benchmark, cg.Gap)
	}

	writeIndicators(b, cat, "강점 지표", gap.Strengths)
	writeIndicators(b, cat, "개선 필요 지표", gap.Weaknesses)

	if len(scores.Warnings) > 0 {
		fmt.Fprintf(b, "\n참고: %d개 문항은 응답이 없거나 범위를 벗어나 보통(3점)으로 처리했습니다.\n", len(scores.Warnings))
	}
}

func writeIndicators(b *strings.Builder, cat *catalog.Catalog, title string, gaps []model.IndicatorGap) {
	if len(gaps) == 0 {
		return
	}
	fmt.Fprintf(b, "\n[%s]\n", title)
	for _, ig := range gaps {
		fmt.Fprintf(b, "- %s: %.1f (기준 %.1f)\n", cat.Label(ig.Indicator), ig.Current, ig.Benchmark)
	}
}
