// Package archive writes an optional CSV snapshot of each uploaded batch.
// The warehouse stays the source of truth; an archive failure is a warning,
// never a run failure.
package archive

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"valdsync/internal/model"
)

var coreHeader = []string{
	"result_id", "assessment_id", "athlete_id", "athlete_name",
	"test_type", "recorded_at", "test_date", "age_at_test",
}

// Writer writes batch snapshots under <dir>/<processor>/<runID>.csv.
type Writer struct {
	dir string
}

// NewWriter returns a snapshot writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write dumps the rows as CSV. Metric columns are the sorted union of the
// batch's metric ids, so every row has the same width.
func (w *Writer) Write(processor, runID string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	dir := filepath.Join(w.dir, processor)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}

	path := filepath.Join(dir, runID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create file: %w", err)
	}
	defer f.Close()

	metricCols := metricColumns(rows)
	cw := csv.NewWriter(f)
	if err := cw.Write(append(append([]string{}, coreHeader...), metricCols...)); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.ResultID,
			row.AssessmentID,
			row.AthleteID,
			row.AthleteName,
			row.TestType,
			row.RecordedAt.UTC().Format(time.RFC3339),
			row.TestDate.UTC().Format("2006-01-02"),
			formatAge(row.AgeAtTest),
		}
		for _, col := range metricCols {
			if v, ok := row.Metrics[col]; ok {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}

func metricColumns(rows []model.Row) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for col := range row.Metrics {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func formatAge(age *int) string {
	if age == nil {
		return ""
	}
	return strconv.Itoa(*age)
}
