package transform

import "valdsync/internal/model"

const bestTrialColumn = "best_trial"

// Composite writes the standalone composite-score table: one row per CMJ
// test with the normalized score and the 1-based number of the trial that
// produced it. It consumes the same CMJ sessions as the CMJ processor but
// feeds a separate destination table.
type Composite struct{}

func (Composite) Name() string     { return "composite" }
func (Composite) TestType() string { return "CMJ" }
func (Composite) Table() string    { return "composite_scores" }

func (c Composite) Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped) {
	stats := compositeStats(batch)

	var rows []model.Row
	var skips []model.Skipped
	var rawScores []float64

	for _, rec := range batch {
		if len(rec.Trials) == 0 {
			skips = append(skips, skipped(rec, "no trials"))
			continue
		}
		if rec.RecordedAt.IsZero() {
			skips = append(skips, skipped(rec, "missing test timestamp"))
			continue
		}

		best, score, ok := bestCompositeTrial(rec, stats)
		if !ok {
			skips = append(skips, skipped(rec, "no trial carries every composite metric"))
			continue
		}

		rows = append(rows, newRow(rec, map[string]float64{
			bestTrialColumn: float64(best + 1),
		}))
		rawScores = append(rawScores, score)
	}

	for i, normalized := range normalizeScores(rawScores) {
		rows[i].Metrics[CompositeScoreColumn] = normalized
	}
	return rows, skips
}
