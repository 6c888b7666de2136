package batch

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
)

// Summary is the outcome of a whole run. Results holds one entry per input file, in
// discovery order.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Elapsed   time.Duration
	Results   []io.JobResult
}

func newSummary(runID string, results []io.JobResult, elapsed time.Duration) *Summary {
	summary := &Summary{
		RunID:   runID,
		Total:   len(results),
		Elapsed: elapsed,
		Results: results,
	}
	for _, result := range results {
		switch result.Outcome {
		case io.OutcomeSuccess:
			summary.Succeeded++
		case io.OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary
}

// AverageMillis is the wall clock time per file, rounded to a tenth of millisecond.
func (s *Summary) AverageMillis() decimal.Decimal {
	if s.Total == 0 {
		return decimal.Zero
	}
	micros := decimal.NewFromInt(s.Elapsed.Microseconds())
	return micros.Div(decimal.NewFromInt(int64(s.Total) * 1000)).Round(1)
}

func (s *Summary) FailedResults() []io.JobResult {
	var failed []io.JobResult
	for _, result := range s.Results {
		if result.Failed() {
			failed = append(failed, result)
		}
	}
	return failed
}

type KindCount struct {
	Kind  io.ErrorKind
	Count int
}

// FailuresByKind counts failures per error kind, most frequent first.
func (s *Summary) FailuresByKind() []KindCount {
	counts := make(map[io.ErrorKind]int)
	for _, result := range s.FailedResults() {
		counts[result.ErrorKind]++
	}

	out := make([]KindCount, 0, len(counts))
	for kind, count := range counts {
		out = append(out, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
