package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

const (
	diagnosesSheet = "진단결과"
	qualitySheet   = "품질"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export diagnoses and quality reports to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		since, _ := cmd.Flags().GetDuration("since")
		out, _ := cmd.Flags().GetString("out")

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cutoff := time.Now().UTC().Add(-since)
		recs, err := st.ListDiagnoses(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "export: list diagnoses")
		}
		reps, err := st.QueryQuality(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "export: list quality reports")
		}

		if err := writeWorkbook(out, recs, reps); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("file", out),
			zap.Int("diagnoses", len(recs)),
			zap.Int("quality_reports", len(reps)),
		)
		return nil
	},
}

// exportCategories lists every category column, full variant first.
func exportCategories() []model.Category {
	var cats []model.Category
	for _, c := range []*catalog.Catalog{catalog.Full(), catalog.Simplified()} {
		for _, cd := range c.Categories {
			cats = append(cats, cd.Key)
		}
	}
	return cats
}

func writeWorkbook(path string, recs []model.DiagnosisRecord, reps []model.QualityReport) error {
	f := xlsx.NewFile()

	ds, err := f.AddSheet(diagnosesSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add diagnoses sheet")
	}
	cats := exportCategories()
	header := []string{"진단ID", "유형", "회사명", "업종", "직원수", "담당자", "이메일", "종합점수", "벤치마크", "격차", "성숙도", "상태", "접수시각", "완료시각"}
	for _, c := range cats {
		header = append(header, string(c))
	}
	addStrings(ds.AddRow(), header...)

	for _, r := range recs {
		row := ds.AddRow()
		addStrings(row, r.DiagnosisID, string(r.Variant), r.CompanyName, r.Industry, r.EmployeeCount, r.ContactName, r.ContactEmail)
		row.AddCell().SetFloat(r.OverallScore)
		row.AddCell().SetFloat(r.OverallBenchmark)
		row.AddCell().SetFloat(r.OverallGap)
		addStrings(row, r.Maturity.Label(), string(r.Status), formatTime(r.SubmittedAt), formatTime(r.CompletedAt))
		for _, c := range cats {
			cell := row.AddCell()
			if v, ok := r.CategoryScores[c]; ok {
				cell.SetFloat(v)
			}
		}
	}

	qs, err := f.AddSheet(qualitySheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add quality sheet")
	}
	addStrings(qs.AddRow(), "진단ID", "최종상태", "성공", "신뢰도", "등급", "완성도", "보정응답", "분석길이", "AI시도", "대체섹션", "기록시각")
	for _, q := range reps {
		row := qs.AddRow()
		addStrings(row, q.DiagnosisID, string(q.FinalState))
		row.AddCell().SetBool(q.Success)
		row.AddCell().SetFloat(q.Confidence)
		addStrings(row, string(q.Grade))
		row.AddCell().SetFloat(q.Completeness)
		row.AddCell().SetInt(q.SanitizedAnswers)
		row.AddCell().SetInt(q.NarrativeLength)
		row.AddCell().SetInt(q.AIAttempts)
		row.AddCell().SetInt(q.FallbackSections)
		addStrings(row, formatTime(q.CreatedAt))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	exportCmd.Flags().Duration("since", 720*time.Hour, "export records newer than this")
	exportCmd.Flags().String("out", "diagnoses.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
