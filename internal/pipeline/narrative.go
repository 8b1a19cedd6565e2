package pipeline

import (
	"unicode/utf8"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// ClassifyNarrative grades an analysis by its length in runes. Text shorter
// than minAcceptable is NarrativeNone and is retried by the AI step.
func ClassifyNarrative(text string, high, minAcceptable int) model.NarrativeTier {
	n := utf8.RuneCountInString(text)
	switch {
	case n >= high:
		return model.NarrativeHigh
	case n >= minAcceptable:
		return model.NarrativeAcceptable
	default:
		return model.NarrativeNone
	}
}
