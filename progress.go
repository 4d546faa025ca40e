package netsweep

import "time"

// ScanProgress is an ephemeral snapshot of a running scan, recomputed
// after every host completion. When the completion rate is still zero the
// ETA cannot be estimated and ETAValid is false.
type ScanProgress struct {
	Completed int
	Total     int
	Elapsed   time.Duration
	Rate      float64
	ETA       time.Duration
	ETAValid  bool
}

// ProgressFunc receives progress snapshots. The engine invokes it from a
// single collector goroutine, so implementations need no locking.
type ProgressFunc func(ScanProgress)

func progressSnapshot(completed, total int, elapsed time.Duration) ScanProgress {
	p := ScanProgress{
		Completed: completed,
		Total:     total,
		Elapsed:   elapsed,
	}
	if elapsed > 0 {
		p.Rate = float64(completed) / elapsed.Seconds()
	}
	if p.Rate > 0 {
		remaining := float64(total-completed) / p.Rate
		p.ETA = time.Duration(remaining * float64(time.Second))
		p.ETAValid = true
	}
	return p
}
