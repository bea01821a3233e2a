package model

import (
	"fmt"
	"time"
)

// Key is the natural key of one test session at the destination. Retried
// uploads deduplicate on it.
type Key struct {
	AthleteID  string
	TestType   string
	RecordedAt time.Time
}

// String renders the key in a stable form usable as a map key and log field.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.AthleteID, k.TestType, k.RecordedAt.UTC().Format(time.RFC3339))
}

// Trial holds the measured metric values of one trial within a test
// session, keyed by sanitized metric id (e.g. PEAK_VERTICAL_FORCE_Trial_N).
type Trial struct {
	Metrics map[string]float64
}

// SourceRecord is one raw test session as returned by the source API.
// Read-only to the pipeline.
type SourceRecord struct {
	AthleteID   string
	AthleteName string
	DateOfBirth time.Time // zero when the profile has no DOB

	TestID     string
	TestType   string
	RecordedAt time.Time

	Trials []Trial
}

// NaturalKey returns the deduplication key for this record.
func (r SourceRecord) NaturalKey() Key {
	return Key{AthleteID: r.AthleteID, TestType: r.TestType, RecordedAt: r.RecordedAt}
}
