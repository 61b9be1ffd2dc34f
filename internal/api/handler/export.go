package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jobcopilot/jobstore/pkg/models"
)

// Export column order is fixed; consumers build spreadsheets on top of it.
var exportHeader = []string{
	"Job Title", "Company", "Location", "Match %", "Level", "Status",
	"Salary Range", "Matched Skills", "Missing Skills", "Applied Date", "Notes",
}

// NewExportHandler returns the handler for GET /api/v1/records/export: a
// CSV of the full, unfiltered record set. Every cell is quoted and
// internal quotes are doubled.
func NewExportHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := st.All(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="job_records.csv"`)

		var b strings.Builder
		writeRow(&b, exportHeader)
		for _, rec := range records {
			writeRow(&b, exportRow(rec))
		}
		w.Write([]byte(b.String()))
	}
}

func exportRow(rec models.JobRecord) []string {
	return []string{
		rec.JobTitle,
		rec.CompanyName,
		rec.Location,
		fmt.Sprintf("%d", rec.MatchPercentage),
		rec.RankingLevel,
		rec.Status,
		salaryRange(rec),
		strings.Join(rec.MatchedSkills, "; "),
		strings.Join(rec.MissingSkills, "; "),
		dateCell(rec.ApplicationDate),
		rec.Notes,
	}
}

func salaryRange(rec models.JobRecord) string {
	if rec.SalaryMin == nil && rec.SalaryMax == nil {
		return ""
	}
	cell := ""
	switch {
	case rec.SalaryMin != nil && rec.SalaryMax != nil:
		cell = fmt.Sprintf("%.0f - %.0f", *rec.SalaryMin, *rec.SalaryMax)
	case rec.SalaryMin != nil:
		cell = fmt.Sprintf("%.0f+", *rec.SalaryMin)
	default:
		cell = fmt.Sprintf("up to %.0f", *rec.SalaryMax)
	}
	if rec.SalaryCurrency != "" {
		cell += " " + rec.SalaryCurrency
	}
	return cell
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// writeRow quotes every cell unconditionally, doubling internal quotes.
func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}
