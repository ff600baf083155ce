// Package stats collects per-chain sampling statistics for the run summary.
package stats

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/ndisidore/scanbar/pkg/sampler"
)

// ChainReport summarizes a single chain.
type ChainReport struct {
	Lane     int
	Samples  int
	Accepted int
	Mean     float64
	Variance float64
	Duration time.Duration
}

// Acceptance returns the chain's acceptance rate (0.0-1.0).
func (c ChainReport) Acceptance() float64 {
	if c.Samples == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Samples)
}

// Report aggregates statistics across all chains.
type Report struct {
	Chains []ChainReport
}

// Acceptance returns the overall acceptance rate (0.0-1.0).
// Returns 0 when there are no samples.
func (r Report) Acceptance() float64 {
	var total, accepted int
	for i := range r.Chains {
		total += r.Chains[i].Samples
		accepted += r.Chains[i].Accepted
	}
	if total == 0 {
		return 0
	}
	return float64(accepted) / float64(total)
}

// Collector accumulates chain summaries as lanes finish.
// It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	chains map[int]ChainReport // lane -> report
}

// NewCollector returns a new Collector ready for use.
func NewCollector() *Collector {
	return &Collector{chains: make(map[int]ChainReport)}
}

// Observe records lane's summary. A later call for the same lane replaces
// the earlier one.
func (c *Collector) Observe(lane int, sum sampler.Summary, dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chains[lane] = ChainReport{
		Lane:     lane,
		Samples:  sum.N,
		Accepted: sum.Accepted,
		Mean:     sum.Mean,
		Variance: sum.Variance,
		Duration: dur,
	}
}

// Report returns the collected statistics ordered by lane.
func (c *Collector) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := Report{Chains: make([]ChainReport, 0, len(c.chains))}
	for _, cr := range c.chains {
		r.Chains = append(r.Chains, cr)
	}
	slices.SortFunc(r.Chains, func(a, b ChainReport) int { return a.Lane - b.Lane })
	return r
}

// PrintReport writes a human-readable chain summary to w.
func PrintReport(w io.Writer, r Report) {
	_, _ = fmt.Fprintln(w, "Chain summary:")
	var total, accepted int
	for _, cr := range r.Chains {
		total += cr.Samples
		accepted += cr.Accepted
		_, _ = fmt.Fprintf(w, "  chain %-3d %d/%d accepted (%4.1f%%)  mean %+.3f  var %.3f  %s\n",
			cr.Lane, cr.Accepted, cr.Samples, cr.Acceptance()*100,
			cr.Mean, cr.Variance, cr.Duration.Round(time.Millisecond))
	}
	_, _ = fmt.Fprintf(w, "  Overall: %d/%d accepted (%4.1f%%)\n", accepted, total, r.Acceptance()*100)
}
