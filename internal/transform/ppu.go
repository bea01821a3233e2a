package transform

import (
	"strings"

	"valdsync/internal/model"
)

const ppuPeakForce = "PEAK_CONCENTRIC_FORCE_Trial_N"

// ppuColumns maps source metric ids to destination column names. The Asym
// columns drop the Trial segment at the destination.
var ppuColumns = map[string]string{
	"CONCENTRIC_DURATION_Trial_ms":              "CONCENTRIC_DURATION_Trial_ms",
	"ECCENTRIC_BRAKING_RFD_Trial_N_s":           "ECCENTRIC_BRAKING_RFD_Trial_N_s",
	"MEAN_ECCENTRIC_FORCE_Asym_Trial_N":         "MEAN_ECCENTRIC_FORCE_Asym_N",
	"MEAN_TAKEOFF_FORCE_Asym_Trial_N":           "MEAN_TAKEOFF_FORCE_Asym_N",
	"PEAK_CONCENTRIC_FORCE_Asym_Trial_N":        "PEAK_CONCENTRIC_FORCE_Asym_N",
	"PEAK_CONCENTRIC_FORCE_Trial_N":             "PEAK_CONCENTRIC_FORCE_Trial_N",
	"PEAK_ECCENTRIC_FORCE_Asym_Trial_N":         "PEAK_ECCENTRIC_FORCE_Asym_N",
	"RELATIVE_PEAK_CONCENTRIC_FORCE_Trial_N_kg": "RELATIVE_PEAK_CONCENTRIC_FORCE_Trial_N_kg",
}

// PPU maps plyometric push-up tests. The best trial is the one with the
// highest absolute peak concentric force (not the relative or asymmetry
// variant).
type PPU struct{}

func (PPU) Name() string     { return "ppu" }
func (PPU) TestType() string { return "PPU" }
func (PPU) Table() string    { return "ppu_results" }

func (p PPU) Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped) {
	var rows []model.Row
	var skips []model.Skipped

	for _, rec := range batch {
		if len(rec.Trials) == 0 {
			skips = append(skips, skipped(rec, "no trials"))
			continue
		}
		if rec.RecordedAt.IsZero() {
			skips = append(skips, skipped(rec, "missing test timestamp"))
			continue
		}

		best, ok := bestPPUTrial(rec.Trials)
		if !ok {
			skips = append(skips, skipped(rec, "missing absolute peak concentric force"))
			continue
		}

		trial := rec.Trials[best]
		metrics := make(map[string]float64, len(ppuColumns))
		for source, dest := range ppuColumns {
			if v, ok := trial.Metrics[source]; ok {
				metrics[dest] = v
			}
		}
		rows = append(rows, newRow(rec, metrics))
	}
	return rows, skips
}

// bestPPUTrial picks by the absolute peak concentric force metric,
// explicitly excluding the per-kilo and asymmetry variants that share the
// PEAK_CONCENTRIC_FORCE stem.
func bestPPUTrial(trials []model.Trial) (int, bool) {
	if best, ok := bestTrialIndex(trials, ppuPeakForce); ok {
		return best, true
	}
	best := -1
	var bestVal float64
	for i, trial := range trials {
		for id, v := range trial.Metrics {
			if !strings.Contains(id, "PEAK_CONCENTRIC_FORCE") {
				continue
			}
			if strings.Contains(id, "kg") || strings.Contains(id, "Asym") {
				continue
			}
			if best < 0 || v > bestVal {
				best, bestVal = i, v
			}
		}
	}
	return best, best >= 0
}
