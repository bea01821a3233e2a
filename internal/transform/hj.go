package transform

import (
	"sort"

	"valdsync/internal/model"
)

const hopRSIColumn = "hop_rsi_avg_best_5"

// HJ maps hop jump tests. RSI is recomputed per hop from its raw components
// (flight time over contact time; both in milliseconds, so the units cancel)
// and the row carries the average of the best five hops.
type HJ struct{}

func (HJ) Name() string     { return "hj" }
func (HJ) TestType() string { return "HJ" }
func (HJ) Table() string    { return "hj_results" }

func (h HJ) Transform(batch []model.SourceRecord) ([]model.Row, []model.Skipped) {
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

		rsi := hopRSIs(rec.Trials)
		if len(rsi) == 0 {
			skips = append(skips, skipped(rec, "no hop has both flight and contact time"))
			continue
		}

		rows = append(rows, newRow(rec, map[string]float64{
			hopRSIColumn: avgBestN(rsi, 5),
		}))
	}
	return rows, skips
}

func hopRSIs(trials []model.Trial) []float64 {
	var rsi []float64
	for _, trial := range trials {
		flight, okF := findMetric(trial, "HOP_FLIGHT_TIME")
		contact, okC := findMetric(trial, "HOP_CONTACT_TIME")
		if !okF || !okC || contact <= 0 {
			continue
		}
		rsi = append(rsi, flight/contact)
	}
	return rsi
}

// avgBestN averages the n largest values; fewer than n averages what exists.
func avgBestN(values []float64, n int) float64 {
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}
