package transform

import "valdsync/internal/model"

// CMJ maps counter-movement jump tests. The best trial is the one with the
// highest composite score against the batch; its weighted metrics plus the
// normalized score form the destination row.
type CMJ struct{}

func (CMJ) Name() string     { return "cmj" }
func (CMJ) TestType() string { return "CMJ" }
func (CMJ) Table() string    { return "cmj_results" }

func (c CMJ) Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped) {
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

		trial := rec.Trials[best]
		metrics := make(map[string]float64, len(CompositeWeights)+1)
		for metric := range CompositeWeights {
			metrics[metric] = trial.Metrics[metric]
		}
		rows = append(rows, newRow(rec, metrics))
		rawScores = append(rawScores, score)
	}

	for i, normalized := range normalizeScores(rawScores) {
		rows[i].Metrics[CompositeScoreColumn] = normalized
	}
	return rows, skips
}
