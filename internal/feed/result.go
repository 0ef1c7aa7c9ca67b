package feed

import (
	"errors"

	"github.com/anonto42/minisocial/internal/monitoring"
)

// ErrClosed is reported by every action once the store is closed.
var ErrClosed = errors.New("feed store closed")

// Outcome classifies what an action did.
type Outcome int

const (
	// Applied means the remote call and the reconciliation both succeeded.
	Applied Outcome = iota
	// Skipped means nothing happened, e.g. the same follow was already in flight.
	Skipped
	// Failed means the local change was reverted. Err says why.
	Failed
	// PartiallyApplied means the remote call succeeded but the refetch did
	// not; the optimistic state is kept until the next reconciliation.
	PartiallyApplied
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case PartiallyApplied:
		return "partially_applied"
	}
	return "unknown"
}

type Result struct {
	Outcome Outcome
	Err     error
}

func (r Result) OK() bool {
	return r.Outcome == Applied || r.Outcome == PartiallyApplied
}

func record(action string, r Result) Result {
	monitoring.SyncMutations.WithLabelValues(action, r.Outcome.String()).Inc()
	return r
}
