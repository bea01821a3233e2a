package transform

import "valdsync/internal/model"

const (
	imtpPeakForce = "PEAK_VERTICAL_FORCE_Trial_N"
	imtpRelForce  = "ISO_BM_REL_FORCE_PEAK_Trial_N_kg"
)

// IMTP maps isometric mid-thigh pull tests. The best trial is the one with
// the highest peak vertical force.
type IMTP struct{}

func (IMTP) Name() string     { return "imtp" }
func (IMTP) TestType() string { return "IMTP" }
func (IMTP) Table() string    { return "imtp_results" }

func (i IMTP) Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped) {
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

		best, ok := bestTrialIndex(rec.Trials, imtpPeakForce)
		if !ok {
			skips = append(skips, skipped(rec, "missing "+imtpPeakForce))
			continue
		}

		trial := rec.Trials[best]
		metrics := map[string]float64{
			imtpPeakForce: trial.Metrics[imtpPeakForce],
		}
		if rel, ok := findMetric(trial, "ISO_BM_REL_FORCE_PEAK"); ok {
			metrics[imtpRelForce] = rel
		}
		rows = append(rows, newRow(rec, metrics))
	}
	return rows, skips
}
