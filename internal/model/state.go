package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// State is a pipeline step. The string value is the token written to the
// progress store, which operators and the spreadsheet backend read as-is.
type State string

const (
	StateInit          State = "초기화"
	StateAnalysisStart State = "분석시작"
	StatePromptBuild   State = "프롬프트생성"
	StateAIAnalyzing   State = "AI분석중"
	StateReportBuild   State = "보고서생성중"
	StatePersist       State = "결과저장중"
	StateFinalReview   State = "최종검토중"
	StateEmail         State = "이메일발송중"
	StateDone          State = "완료"

	StateAnalysisFailed    State = "분석실패"
	StateStructuringFailed State = "구조화실패"
	StateSaveFailed        State = "저장실패"
	StateError             State = "오류발생"
	StateTimeout           State = "타임아웃"
)

// AllStates lists every state in pipeline order, failure states last.
var AllStates = []State{
	StateInit,
	StateAnalysisStart,
	StatePromptBuild,
	StateAIAnalyzing,
	StateReportBuild,
	StatePersist,
	StateFinalReview,
	StateEmail,
	StateDone,
	StateAnalysisFailed,
	StateStructuringFailed,
	StateSaveFailed,
	StateError,
	StateTimeout,
}

// ParseState maps a progress token back to its State.
func ParseState(s string) (State, error) {
	for _, st := range AllStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", eris.Errorf("model: unknown pipeline state %q", s)
}

// Failed reports whether the state is one of the named failure states.
func (s State) Failed() bool {
	switch s {
	case StateAnalysisFailed, StateStructuringFailed, StateSaveFailed, StateError, StateTimeout:
		return true
	}
	return false
}

// Terminal reports whether the pipeline stops in this state.
func (s State) Terminal() bool {
	return s == StateDone || s.Failed()
}

// IsTerminalStatus applies the progress-store rule to a free-text status:
// "완료", "타임아웃", or anything containing "오류" or "실패" ends a run.
// Rows written by other tools are not guaranteed to use a known State.
func IsTerminalStatus(status string) bool {
	if status == string(StateDone) || status == string(StateTimeout) {
		return true
	}
	return strings.Contains(status, "오류") || strings.Contains(status, "실패")
}
