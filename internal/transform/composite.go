package transform

import (
	"math"
	"sort"

	"valdsync/internal/model"
)

// CompositeWeights weighs the CMJ metrics that feed the composite score.
// The weights sum to 1; higher is better for every metric.
var CompositeWeights = map[string]float64{
	"CONCENTRIC_IMPULSE_Trial_Ns":                0.2,
	"ECCENTRIC_BRAKING_RFD_Trial_N_s":            0.1,
	"PEAK_CONCENTRIC_FORCE_Trial_N":              0.2,
	"BODYMASS_RELATIVE_TAKEOFF_POWER_Trial_W_kg": 0.3,
	"RSI_MODIFIED_Trial_RSI_mod":                 0.1,
	"ECCENTRIC_BRAKING_IMPULSE_Trial_Ns":         0.1,
}

// CompositeScoreColumn is the destination column carrying the normalized
// composite score.
const CompositeScoreColumn = "cmj_composite_score"

// trialHasCompositeMetrics reports whether a trial carries every weighted
// metric. Trials with gaps cannot be scored against the rest of the batch.
func trialHasCompositeMetrics(trial model.Trial) bool {
	for metric := range CompositeWeights {
		if _, ok := trial.Metrics[metric]; !ok {
			return false
		}
	}
	return true
}

// batchStats holds per-metric mean and standard deviation across every
// scoreable trial in the batch.
type batchStats struct {
	mean map[string]float64
	std  map[string]float64
}

// compositeStats computes batch-wide means and sample standard deviations
// for the weighted metrics.
func compositeStats(batch []model.SourceRecord) batchStats {
	sums := make(map[string]float64, len(CompositeWeights))
	counts := make(map[string]int, len(CompositeWeights))
	for _, rec := range batch {
		for _, trial := range rec.Trials {
			if !trialHasCompositeMetrics(trial) {
				continue
			}
			for metric := range CompositeWeights {
				sums[metric] += trial.Metrics[metric]
				counts[metric]++
			}
		}
	}

	stats := batchStats{
		mean: make(map[string]float64, len(CompositeWeights)),
		std:  make(map[string]float64, len(CompositeWeights)),
	}
	for metric, n := range counts {
		stats.mean[metric] = sums[metric] / float64(n)
	}
	for _, rec := range batch {
		for _, trial := range rec.Trials {
			if !trialHasCompositeMetrics(trial) {
				continue
			}
			for metric := range CompositeWeights {
				d := trial.Metrics[metric] - stats.mean[metric]
				stats.std[metric] += d * d
			}
		}
	}
	for metric, n := range counts {
		if n > 1 {
			stats.std[metric] = math.Sqrt(stats.std[metric] / float64(n-1))
		} else {
			stats.std[metric] = 0
		}
	}
	return stats
}

// compositeScore is the weighted z-score of one trial against the batch.
// A metric with zero deviation contributes zero, so a single-trial batch
// still scores.
func compositeScore(trial model.Trial, stats batchStats) float64 {
	var score float64
	for metric, weight := range CompositeWeights {
		std := stats.std[metric]
		if std == 0 {
			continue
		}
		score += weight * (trial.Metrics[metric] - stats.mean[metric]) / std
	}
	return score
}

// bestCompositeTrial returns the index and score of the record's best
// scoreable trial.
func bestCompositeTrial(rec model.SourceRecord, stats batchStats) (int, float64, bool) {
	best := -1
	var bestScore float64
	for i, trial := range rec.Trials {
		if !trialHasCompositeMetrics(trial) {
			continue
		}
		s := compositeScore(trial, stats)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, best >= 0
}

// normalizeScores rescales raw composite scores onto 50-100 within the
// batch. All-equal scores map to 100.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	min, max := sorted[0], sorted[len(sorted)-1]

	out := make([]float64, len(scores))
	if max == min {
		for i := range out {
			out[i] = 100
		}
		return out
	}
	for i, s := range scores {
		out[i] = 50 + (s-min)/(max-min)*50
	}
	return out
}
