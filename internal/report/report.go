// Package report renders result lists as class report documents.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/akshayhegde/gradescan/internal/model"
)

// dateLayout is how record dates appear in the report.
const dateLayout = "2006-01-02"

// header is the fixed column contract. Consumers key on these names.
var header = []string{
	"Date",
	"Exam Name",
	"Class",
	"Semester",
	"Subject Code",
	"Student Name",
	"USN",
	"Total Marks",
	"Marks Obtained",
	"Accuracy (%)",
	"Summary",
}

// BuildClassReport renders results as comma-separated text: one header
// line, then one line per result in input order. Missing optional
// fields render as "N/A" (the student name as "Unknown"). Only the
// summary is quoted; every other field is either controlled input or
// numeric and cannot contain a delimiter. now supplies the fallback
// date for records without a timestamp.
func BuildClassReport(results []model.ExamResult, now time.Time) string {
	lines := make([]string, 0, len(results)+1)
	lines = append(lines, strings.Join(header, ","))

	for _, r := range results {
		date := now.UTC().Format(dateLayout)
		if r.Timestamp != 0 {
			date = time.UnixMilli(r.Timestamp).UTC().Format(dateLayout)
		}
		row := []string{
			date,
			orNA(r.ExamName),
			orNA(r.ClassName),
			orNA(r.Semester),
			orNA(r.SubjectCode),
			orUnknown(r.StudentName),
			orNA(r.USN),
			formatNumber(r.TotalMaxMarks),
			formatNumber(r.TotalMarksObtained),
			formatNumber(r.AccuracyPercentage),
			quote(r.Summary),
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return strings.Join(lines, "\n")
}

// Filename suggests a download name for a report generated at t.
func Filename(prefix string, t time.Time) string {
	return prefix + "_" + t.Format(dateLayout) + ".csv"
}

// quote wraps free text in double quotes, doubling inner quotes, since
// a summary may contain commas or quotes of its own.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
