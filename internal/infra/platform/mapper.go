// internal/infra/platform/mapper.go
package platform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parcel_monitor_bot/internal/domain/parcel"
)

// Grading sheet export columns.
const (
	colSubmittedAt = "Метка времени"
	colStudentName = "ФИО"
	colTaskName    = "Задание"
	colReviewer    = "Проверяющий"
	colGrade       = "Оценка"
)

// resubmitMarker in the grade column means the reviewer requested a new attempt.
const resubmitMarker = "пересдача"

// submittedAtLayout matches the sheet's timestamp format, e.g. "25.05.2025 18:39:30".
const submittedAtLayout = "02.01.2006 15:04:05"

// mapExportCSV maps the grading sheet CSV to a snapshot. The submission ID is
// "<timestamp>|<task>", which is stable per student and assignment attempt.
func mapExportCSV(body []byte) (parcel.Snapshot, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1 // trailing columns vary between sheets

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: export is empty, header row missing", ErrParse)
	}

	colIndex := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colSubmittedAt, colTaskName, colReviewer, colGrade} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("%w: export is missing column %q", ErrParse, required)
		}
	}

	snap := make(parcel.Snapshot)
	for rowNum, row := range records[1:] {
		field := func(name string) string {
			idx := colIndex[name]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		submittedAt := field(colSubmittedAt)
		taskName := field(colTaskName)
		if submittedAt == "" || taskName == "" {
			continue // blank filler rows at the bottom of the sheet
		}

		updatedAt, err := time.Parse(submittedAtLayout, submittedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d has bad timestamp %q: %v", ErrParse, rowNum+2, submittedAt, err)
		}

		sub := parcel.Submission{
			ID:        submittedAt + "|" + taskName,
			TaskName:  taskName,
			Status:    deriveStatus(field(colReviewer), field(colGrade)),
			UpdatedAt: updatedAt,
		}
		snap[sub.ID] = sub
	}
	return snap, nil
}

// deriveStatus maps the reviewer and grade columns to a parcel status:
// no reviewer yet means the parcel is queued, a reviewer without a grade
// means it is being checked, and a grade finishes it (zero fails, the
// resubmission marker sends it back to the student).
func deriveStatus(reviewer, grade string) parcel.Status {
	if grade != "" {
		if strings.EqualFold(grade, resubmitMarker) {
			return parcel.StatusNeedsReview
		}
		if value, err := strconv.ParseFloat(strings.ReplaceAll(grade, ",", "."), 64); err == nil && value == 0 {
			return parcel.StatusFailed
		}
		return parcel.StatusPassed
	}
	if reviewer != "" {
		return parcel.StatusChecking
	}
	return parcel.StatusPending
}
