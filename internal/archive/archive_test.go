package archive

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"valdsync/internal/model"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	age := 23
	ts := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	rows := []model.Row{
		{
			ResultID:     "r1",
			AssessmentID: "t1",
			AthleteID:    "A1",
			AthleteName:  "Ada Lovelace",
			TestType:     "CMJ",
			RecordedAt:   ts,
			TestDate:     ts.Truncate(24 * time.Hour),
			AgeAtTest:    &age,
			Metrics:      map[string]float64{"jump_height_cm": 45.2},
		},
		{
			ResultID:     "r2",
			AssessmentID: "t2",
			AthleteID:    "A2",
			AthleteName:  "Grace Hopper",
			TestType:     "CMJ",
			RecordedAt:   ts.Add(time.Hour),
			TestDate:     ts.Truncate(24 * time.Hour),
			Metrics:      map[string]float64{"cmj_composite_score": 100},
		},
	}

	if err := w.Write("cmj", "run-1", rows); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "cmj", "run-1.csv"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("lines: got %d, want header + 2 rows", len(records))
	}

	header := records[0]
	// metric columns are sorted after the core columns
	if header[len(header)-2] != "cmj_composite_score" || header[len(header)-1] != "jump_height_cm" {
		t.Errorf("metric columns: %v", header)
	}
	if records[1][0] != "r1" || records[1][7] != "23" {
		t.Errorf("first row: %v", records[1])
	}
	// missing age and missing metric render empty
	if records[2][7] != "" {
		t.Errorf("missing age should be empty: %v", records[2])
	}
}

func TestWrite_EmptyBatchIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := NewWriter(dir).Write("cmj", "run-1", nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cmj")); !os.IsNotExist(err) {
		t.Error("no file should be created for an empty batch")
	}
}
