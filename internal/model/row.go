package model

import "time"

// Row is a SourceRecord mapped into the destination schema. Every row
// traces back to exactly one SourceRecord via its natural key.
type Row struct {
	ResultID     string
	AssessmentID string
	AthleteID    string
	AthleteName  string
	TestType     string
	RecordedAt   time.Time
	TestDate     time.Time
	AgeAtTest    *int // nil when the profile has no DOB

	// Metrics holds the destination metric columns, including derived
	// values such as the composite score.
	Metrics map[string]float64
}

// NaturalKey returns the deduplication key for this row.
func (r Row) NaturalKey() Key {
	return Key{AthleteID: r.AthleteID, TestType: r.TestType, RecordedAt: r.RecordedAt}
}

// Skipped records one source record dropped during Transform, with the
// reason it could not be mapped. Skips are logged, never fatal.
type Skipped struct {
	Key    Key
	TestID string
	Reason string
}

// UploadResult reports what the destination durably accepted.
type UploadResult struct {
	Inserted   int
	Duplicates int
	// Accepted lists the natural keys confirmed durable, including ones
	// accepted before a mid-batch failure.
	Accepted []Key
}
