package transfer

import (
	"golang.org/x/exp/constraints"
)

// State is a position in the copy state machine.
type State int

const (
	NotStarted State = iota
	Copying
	Completed
	Cancelled
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Copying:
		return "copying"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s >= Completed }

// Progress is an immutable snapshot of a copy. TotalBytes is nil while the
// size is unknown and is only guaranteed exact once IsCompleted is set.
type Progress struct {
	TotalBytes       *int64
	TransferredBytes int64
	IsCompleted      bool
}

// Total returns the total size when known.
func (p Progress) Total() (int64, bool) {
	if p.TotalBytes == nil {
		return 0, false
	}
	return *p.TotalBytes, true
}

// Percent returns the completed share in [0,100], or -1 when the total is
// unknown.
func (p Progress) Percent() float64 {
	total, ok := p.Total()
	if !ok {
		return -1
	}
	return percent(p.TransferredBytes, total)
}

// ProgressFunc receives snapshots synchronously between chunks. It delays the
// next read for as long as it runs.
type ProgressFunc func(Progress)

func percent[T constraints.Integer](done, total T) float64 {
	if total <= 0 {
		if done > 0 {
			return 100
		}
		return 0
	}
	pct := float64(done) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
