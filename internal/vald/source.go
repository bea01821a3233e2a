package vald

import (
	"context"
	"time"

	"go.uber.org/zap"

	"valdsync/internal/model"
)

// RecordSource fetches SourceRecords of one test type across the whole
// athlete roster. It implements the pipeline's Fetcher contract.
type RecordSource struct {
	client       *Client
	testType     string
	athleteDelay time.Duration
	logger       *zap.Logger
}

// NewRecordSource builds a fetcher for the given test type (CMJ, HJ, IMTP,
// PPU).
func NewRecordSource(client *Client, testType string, athleteDelay time.Duration, logger *zap.Logger) *RecordSource {
	return &RecordSource{
		client:       client,
		testType:     testType,
		athleteDelay: athleteDelay,
		logger:       logger,
	}
}

// Fetch returns every test session of the source's type modified since the
// given instant, one SourceRecord per session with its trials attached.
func (s *RecordSource) Fetch(ctx context.Context, since time.Time) ([]model.SourceRecord, error) {
	profiles, err := s.client.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("fetched athlete profiles", zap.Int("count", len(profiles)))

	var records []model.SourceRecord
	for i, profile := range profiles {
		if i > 0 && s.athleteDelay > 0 {
			if err := sleepCtx(ctx, s.athleteDelay); err != nil {
				return nil, err
			}
		}

		tests, err := s.client.TestsByProfile(ctx, profile.ProfileID, since)
		if err != nil {
			return nil, err
		}

		for _, test := range tests {
			if test.TestType != s.testType {
				continue
			}

			trials, err := s.client.TrialsByTest(ctx, test.TestID)
			if err != nil {
				return nil, err
			}

			records = append(records, model.SourceRecord{
				AthleteID:   profile.ProfileID,
				AthleteName: profile.FullName,
				DateOfBirth: profile.DateOfBirth,
				TestID:      test.TestID,
				TestType:    test.TestType,
				RecordedAt:  test.ModifiedUTC,
				Trials:      toTrials(trials),
			})
		}
	}

	s.logger.Debug("fetched source records",
		zap.String("test_type", s.testType),
		zap.Time("since", since),
		zap.Int("count", len(records)),
	)
	return records, nil
}

// toTrials flattens raw trial results into metric maps keyed by sanitized
// metric id. A result key seen twice in one trial keeps the first value.
func toTrials(raw []RawTrial) []model.Trial {
	trials := make([]model.Trial, 0, len(raw))
	for _, rt := range raw {
		metrics := make(map[string]float64, len(rt.Results))
		for _, res := range rt.Results {
			id := MetricID(res.ResultKey, res.Limb, res.Unit)
			if _, seen := metrics[id]; !seen {
				metrics[id] = res.Value
			}
		}
		trials = append(trials, model.Trial{Metrics: metrics})
	}
	return trials
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
