package scoring

import (
	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// GeneralRecommendation is appended when more than generalAfter indicators
// fall below the benchmark.
const GeneralRecommendation = "전반적인 AI 역량 강화가 필요합니다. 전문 컨설팅을 통한 종합 진단과 단계별 교육 프로그램 수립을 권장합니다."

const generalAfter = 3

var categoryAdvice = map[model.Category]string{
	catalog.BusinessFoundation:    "사업 기반 강화를 위해 핵심 사업모델과 고객 가치를 재정의하고, AI 적용 가능 영역을 식별하세요.",
	catalog.CurrentAI:             "생성형 AI 도구를 일상 업무에 도입하는 파일럿을 시작하고, 활용 사례를 부서 간에 공유하세요.",
	catalog.OrganizationReadiness: "경영진 주도의 AI 비전 공유와 구성원 대상 기초 교육으로 변화 수용도를 높이세요.",
	catalog.TechInfrastructure:    "데이터 수집과 관리 체계를 정비하고 클라우드 기반 협업 도구부터 단계적으로 도입하세요.",
	catalog.GoalClarity:           "AI 도입 목표와 측정 가능한 KPI를 설정하고, 우선순위 과제를 3개 이내로 좁히세요.",
	catalog.ExecutionCapability:   "소규모 파일럿 프로젝트로 실행 경험을 쌓고, 외부 전문가와의 협업 체계를 마련하세요.",
	catalog.AICapability:          "AI 도구 실습 중심의 교육으로 프롬프트 작성과 데이터 활용 역량을 키우세요.",
	catalog.PracticalCapability:   "반복 업무를 중심으로 AI 자동화 대상을 선정하고 실무 적용 사례를 만들어 보세요.",
}

// Recommend returns canned advice for each category below the benchmark by
// more than the gap threshold, in category order.
func Recommend(ga model.GapAnalysis) []string {
	var out []string
	for _, cg := range ga.Categories {
		if cg.Gap >= -GapThreshold {
			continue
		}
		if advice, ok := categoryAdvice[cg.Category]; ok {
			out = append(out, advice)
		}
	}
	if len(ga.Weaknesses) > generalAfter {
		out = append(out, GeneralRecommendation)
	}
	return out
}
