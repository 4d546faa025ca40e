package netsweep

import (
	"math"
	"sync"
)

// ScanSummary holds the derived counts over a result collection
type ScanSummary struct {
	Total            int     `json:"total"`
	Reachable        int     `json:"reachable"`
	Unreachable      int     `json:"unreachable"`
	ReachablePercent float64 `json:"reachable_percent"`
}

// Aggregator accumulates per-host results in arrival order and derives
// summary counts. Each address is admitted at most once, so the collection
// stays a duplicate-free image of the dispatched address set.
type Aggregator struct {
	mu        sync.Mutex
	results   []HostProbeResult
	seen      map[string]struct{}
	reachable int
}

// NewAggregator creates an empty result aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		seen: make(map[string]struct{}),
	}
}

// Add records a completed result. It returns false if a result for the
// same address was already recorded, in which case the new one is dropped.
func (a *Aggregator) Add(res HostProbeResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seen[res.Address]; dup {
		return false
	}
	a.seen[res.Address] = struct{}{}
	a.results = append(a.results, res)
	if res.Reachable {
		a.reachable++
	}
	return true
}

// Total returns the number of recorded results
func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Reachable returns the number of reachable hosts
func (a *Aggregator) Reachable() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reachable
}

// Unreachable returns the number of unreachable hosts
func (a *Aggregator) Unreachable() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results) - a.reachable
}

// ReachablePercent returns the reachable share rounded to two decimals,
// or zero for an empty collection
func (a *Aggregator) ReachablePercent() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.results) == 0 {
		return 0
	}
	pct := float64(a.reachable) / float64(len(a.results)) * 100
	return math.Round(pct*100) / 100
}

// Results returns a copy of the collection in arrival order
func (a *Aggregator) Results() []HostProbeResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]HostProbeResult, len(a.results))
	copy(out, a.results)
	return out
}

// Addresses returns the distinct recorded addresses in arrival order
func (a *Aggregator) Addresses() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.results))
	for i, res := range a.results {
		out[i] = res.Address
	}
	return out
}

// Summary returns the derived counts
func (a *Aggregator) Summary() ScanSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ScanSummary{
		Total:       len(a.results),
		Reachable:   a.reachable,
		Unreachable: len(a.results) - a.reachable,
	}
	if s.Total > 0 {
		pct := float64(s.Reachable) / float64(s.Total) * 100
		s.ReachablePercent = math.Round(pct*100) / 100
	}
	return s
}
