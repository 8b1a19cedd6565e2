package model

import "time"

// ProgressRecord is one append-only row in the progress store.
type ProgressRecord struct {
	SubmissionID string    `json:"diagnosisId"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

// LatestProgress returns the most recent row for id, scanning in reverse
// append order. Rows for other ids are skipped so callers can pass an
// unfiltered sheet dump.
func LatestProgress(rows []ProgressRecord, id string) (ProgressRecord, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].SubmissionID == id {
			return rows[i], true
		}
	}
	return ProgressRecord{}, false
}
