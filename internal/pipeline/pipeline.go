// Package pipeline implements the idempotent fetch-transform-upload-commit
// run that every data-type processor shares.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"valdsync/internal/model"
)

// Fetcher retrieves source records modified since an instant.
type Fetcher interface {
	Fetch(ctx context.Context, since time.Time) ([]model.SourceRecord, error)
}

// Transformer maps a batch of source records into destination rows,
// reporting malformed records individually.
type Transformer interface {
	Name() string
	TestType() string
	Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped)
}

// Destination is the idempotent upload target. Insert must tolerate rows
// whose natural key already exists.
type Destination interface {
	Ensure(ctx context.Context) error
	ExistingKeys(ctx context.Context, keys []model.Key) (map[string]bool, error)
	Insert(ctx context.Context, batch []model.Row) (model.UploadResult, error)
}

// StateStore persists the last-success window marker.
type StateStore interface {
	LastSuccess(ctx context.Context, testType string) (time.Time, bool, error)
	Commit(ctx context.Context, testType string, t time.Time) error
}

// Archiver snapshots an uploaded batch. Failures are warnings only.
type Archiver interface {
	Write(processor, runID string, rows []model.Row) error
}

// Summary reports one run's outcome, logged as a single line at the end.
type Summary struct {
	Processor   string
	RunID       string
	WindowStart time.Time
	WindowEnd   time.Time
	Fetched     int
	Transformed int
	Skipped     int
	Duplicates  int
	Uploaded    int
	Duration    time.Duration
}

// Params wires one processor's pipeline.
type Params struct {
	Fetcher      Fetcher
	Transformer  Transformer
	Destination  Destination
	State        StateStore
	Archiver     Archiver // nil disables archiving
	Retry        RetryPolicy
	DefaultStart time.Time
	Logger       *zap.Logger
}

// Pipeline runs one data type's nightly batch.
type Pipeline struct {
	fetcher     Fetcher
	transformer Transformer
	dest        Destination
	state       StateStore
	archiver    Archiver
	retry       RetryPolicy
	start       time.Time
	logger      *zap.Logger

	now func() time.Time
}

// New builds a pipeline from its parts.
func New(p Params) *Pipeline {
	return &Pipeline{
		fetcher:     p.Fetcher,
		transformer: p.Transformer,
		dest:        p.Destination,
		state:       p.State,
		archiver:    p.Archiver,
		retry:       p.Retry,
		start:       p.DefaultStart,
		logger:      p.Logger,
		now:         time.Now,
	}
}

// Run executes one batch: load window, fetch, transform, upload the unsent
// remainder, commit the window. Any failure before Commit leaves the
// window untouched, so the next scheduled run re-derives the remainder via
// the destination's natural keys.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.now()
	name := p.transformer.Name()
	summary := Summary{
		Processor: name,
		RunID:     uuid.NewString(),
		WindowEnd: started.UTC(),
	}
	logger := p.logger.With(zap.String("processor", name), zap.String("run_id", summary.RunID))

	since, ok, err := p.state.LastSuccess(ctx, name)
	if err != nil {
		return summary, err
	}
	if !ok {
		since = p.start
	}
	summary.WindowStart = since
	logger.Info("run started",
		zap.Time("window_start", summary.WindowStart),
		zap.Time("window_end", summary.WindowEnd),
	)

	// Fetch
	var records []model.SourceRecord
	err = Retry(ctx, p.retry, func(ctx context.Context) error {
		var fetchErr error
		records, fetchErr = p.fetcher.Fetch(ctx, since)
		if fetchErr != nil {
			logger.Warn("fetch attempt failed", zap.Error(fetchErr))
			return &FetchError{Err: fetchErr}
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.Fetched = len(records)

	// Transform: one bad record never blocks the batch.
	rows, skips := p.transformer.Transform(records)
	summary.Transformed = len(rows)
	summary.Skipped = len(skips)
	for _, s := range skips {
		logger.Warn("record skipped",
			zap.String("key", s.Key.String()),
			zap.String("test_id", s.TestID),
			zap.String("reason", s.Reason),
		)
	}

	// Upload: pre-check existing keys, insert only the remainder. Each
	// retry re-derives the remainder, so rows accepted before a partial
	// failure are never resubmitted.
	if len(rows) > 0 {
		keys := make([]model.Key, len(rows))
		for i, row := range rows {
			keys[i] = row.NaturalKey()
		}

		firstAttempt := true
		err = Retry(ctx, p.retry, func(ctx context.Context) error {
			if err := p.dest.Ensure(ctx); err != nil {
				return &UploadError{Err: err}
			}

			existing, err := p.dest.ExistingKeys(ctx, keys)
			if err != nil {
				return &UploadError{Err: err}
			}

			remainder := make([]model.Row, 0, len(rows))
			for _, row := range rows {
				if !existing[row.NaturalKey().String()] {
					remainder = append(remainder, row)
				}
			}
			if firstAttempt {
				// Keys present before this run's first attempt are true
				// duplicates; later attempts also see our own inserts.
				summary.Duplicates = len(rows) - len(remainder)
				firstAttempt = false
			}
			if len(remainder) == 0 {
				return nil
			}

			res, insertErr := p.dest.Insert(ctx, remainder)
			summary.Uploaded += res.Inserted
			if insertErr != nil {
				logger.Warn("upload attempt failed",
					zap.Int("accepted", len(res.Accepted)),
					zap.Int("remainder", len(remainder)-len(res.Accepted)),
					zap.Error(insertErr),
				)
				return &UploadError{Err: insertErr, Accepted: len(res.Accepted)}
			}
			return nil
		})
		if err != nil {
			return summary, err
		}

		if p.archiver != nil {
			if err := p.archiver.Write(name, summary.RunID, rows); err != nil {
				logger.Warn("archive snapshot failed", zap.Error(err))
			}
		}
	}

	// Commit: the marker advances only now, after the destination holds
	// every row of the batch.
	if err := p.state.Commit(ctx, name, summary.WindowEnd); err != nil {
		return summary, &CommitError{Err: err}
	}

	summary.Duration = p.now().Sub(started)
	logger.Info("run committed",
		zap.Int("fetched", summary.Fetched),
		zap.Int("transformed", summary.Transformed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("uploaded", summary.Uploaded),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
