package transform

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"valdsync/internal/model"
)

// Transformer maps a batch of SourceRecords of one test type into
// destination rows. Malformed records are reported individually as skips;
// a transformer never fails the whole batch.
type Transformer interface {
	// Name is the processor name (cmj, hj, imtp, ppu, composite).
	Name() string
	// TestType is the source test type the processor consumes.
	TestType() string
	// Table is the destination table (without prefix).
	Table() string
	Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped)
}

// newRow builds a destination row from a source record with the shared
// columns filled in. The natural key carries over unchanged.
func newRow(rec model.SourceRecord, metrics map[string]float64) model.Row {
	testDate := rec.RecordedAt.UTC().Truncate(24 * time.Hour)
	return model.Row{
		ResultID:     uuid.NewString(),
		AssessmentID: rec.TestID,
		AthleteID:    rec.AthleteID,
		AthleteName:  rec.AthleteName,
		TestType:     rec.TestType,
		RecordedAt:   rec.RecordedAt,
		TestDate:     testDate,
		AgeAtTest:    ageAtTest(rec.DateOfBirth, testDate),
		Metrics:      metrics,
	}
}

// ageAtTest computes whole years between DOB and test date. Returns nil for
// a missing DOB or one outside a plausible range, so the destination gets a
// NULL rather than a bogus age.
func ageAtTest(dob, testDate time.Time) *int {
	if dob.IsZero() {
		return nil
	}
	if dob.Year() <= 1920 || dob.Year() >= time.Now().Year() {
		return nil
	}
	age := testDate.Year() - dob.Year()
	if testDate.Month() < dob.Month() ||
		(testDate.Month() == dob.Month() && testDate.Day() < dob.Day()) {
		age--
	}
	return &age
}

func skipped(rec model.SourceRecord, reason string) model.Skipped {
	return model.Skipped{Key: rec.NaturalKey(), TestID: rec.TestID, Reason: reason}
}

// bestTrialIndex returns the index of the trial with the highest value for
// the given metric, ignoring trials that lack it.
func bestTrialIndex(trials []model.Trial, metric string) (int, bool) {
	best := -1
	var bestVal float64
	for i, trial := range trials {
		v, ok := trial.Metrics[metric]
		if !ok {
			continue
		}
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	return best, best >= 0
}

// findMetric returns the first metric in the trial whose id contains the
// given fragment. The source occasionally renames ids between API
// revisions, so exact matching on derived metrics is too brittle.
func findMetric(trial model.Trial, fragment string) (float64, bool) {
	if v, ok := trial.Metrics[fragment]; ok {
		return v, true
	}
	for id, v := range trial.Metrics {
		if strings.Contains(id, fragment) {
			return v, true
		}
	}
	return 0, false
}
