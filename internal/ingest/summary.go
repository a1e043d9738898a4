package ingest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bowerhall/graphcol/internal/graphcol"
)

// Dataset outcomes.
const (
	StatusCommitted = "committed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Result is the outcome of one dataset.
type Result struct {
	Dataset      string
	TxID         string
	Status       string
	Stats        graphcol.Stats
	FailedChunks int
	LostTriples  int64
	ManifestPath string
	Err          error
}

// Summary collects the results of a run over several datasets.
type Summary struct {
	Results []Result
}

// Total sums the stats of every dataset that got a manifest. Failed datasets
// count as zero.
func (s Summary) Total() graphcol.Stats {
	var total graphcol.Stats
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			continue
		}
		total = total.Add(r.Stats)
	}
	return total
}

// Failed returns the number of datasets without a manifest.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// String renders the summary table printed at the end of a run.
func (s Summary) String() string {
	var b strings.Builder
	rule := strings.Repeat("=", 40)

	b.WriteString("Summary\n")
	b.WriteString(rule + "\n")

	for _, r := range s.Results {
		switch r.Status {
		case StatusFailed:
			fmt.Fprintf(&b, "%s: failed (%v)\n", r.Dataset, r.Err)
		case StatusDegraded:
			fmt.Fprintf(&b, "%s: %s triples, %d chunks, %d chunks lost (%s triples)\n",
				r.Dataset, humanize.Comma(r.Stats.TotalTriples), r.Stats.TotalChunks, r.FailedChunks, humanize.Comma(r.LostTriples))
		default:
			fmt.Fprintf(&b, "%s: %s triples, %d chunks\n", r.Dataset, humanize.Comma(r.Stats.TotalTriples), r.Stats.TotalChunks)
		}
	}

	total := s.Total()
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Total: %s triples, %d chunks, %s\n", humanize.Comma(total.TotalTriples), total.TotalChunks, mib(total.TotalSizeBytes))

	return b.String()
}
