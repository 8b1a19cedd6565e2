package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/pkg/appscript"
)

func TestSheetsStore(t *testing.T) {
	var posted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			posted = append(posted, body)
			_, _ = w.Write([]byte(`{"success":true}`)) //nolint:errcheck
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"rows":[{"diagnosisId":"d1","status":"초기화"},{"diagnosisId":"d1","status":"AI분석중"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	st := NewSheets(appscript.NewClient(srv.URL))
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.AppendProgress(ctx, model.ProgressRecord{SubmissionID: "d1", Status: "초기화"}))
	require.NoError(t, st.SaveDiagnosis(ctx, model.DiagnosisRecord{DiagnosisID: "d1", ReportHTML: "<html>big</html>", ReportSummary: "요약"}))

	require.Len(t, posted, 2)
	assert.Equal(t, appscript.ActionUpdateProgress, posted[0]["action"])
	assert.NotEmpty(t, posted[0]["timestamp"])
	assert.Equal(t, appscript.ActionSaveDiagnosis, posted[1]["action"])
	assert.NotContains(t, posted[1], "reportHtml")
	assert.Equal(t, "요약", posted[1]["reportSummary"])

	latest, ok, err := LatestStatus(ctx, st, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, string(model.StateAIAnalyzing), latest.Status)
}

func TestSheetsStore_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"quota"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	err := NewSheets(appscript.NewClient(srv.URL)).RecordQuality(context.Background(), model.QualityReport{DiagnosisID: "d1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets: record quality d1")
	assert.Contains(t, err.Error(), "quota")
}
