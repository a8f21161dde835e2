package pipeline

import (
	"errors"
	"fmt"

	"github.com/ppiankov/vesselcost/internal/model"
)

// State is the position of a run in the pipeline
type State string

const (
	StateNotStarted State = "not_started"
	StateExtracted  State = "extracted"
	StateCosted     State = "costed"
	StateEnriched   State = "enriched_or_skipped"
	StateAssembled  State = "assembled"
	StateFailed     State = "failed"
)

// ErrIllegalTransition is returned when an operation does not fit the run's state
var ErrIllegalTransition = errors.New("illegal pipeline transition")

var transitions = map[State]State{
	StateNotStarted: StateExtracted,
	StateExtracted:  StateCosted,
	StateCosted:     StateEnriched,
	StateEnriched:   StateAssembled,
}

// Run is one document's trip through the pipeline. Runs share nothing:
// each holds its own attribute map and breakdowns.
type Run struct {
	Document   model.DocumentMeta
	Attributes *model.AttributeMap
	Base       *model.CostBreakdown // rule-based breakdown
	Breakdown  *model.CostBreakdown // after merging enrichment
	Enrichment model.EnrichmentResult
	Warnings   []string
	Report     *model.Report

	state State
	err   error
}

func newRun() *Run {
	return &Run{state: StateNotStarted}
}

// State returns the current state
func (r *Run) State() State {
	return r.state
}

// Err returns the error that failed the run, if any
func (r *Run) Err() error {
	return r.err
}

// Fork starts a fresh run from the same extraction with a mutable copy of
// the attributes, for re-costing with different overrides
func (r *Run) Fork() (*Run, error) {
	if r.Attributes == nil {
		return nil, fmt.Errorf("%w: nothing extracted to fork from (state %s)", ErrIllegalTransition, r.state)
	}
	return &Run{
		Document:   r.Document,
		Attributes: r.Attributes.Clone(),
		state:      StateExtracted,
	}, nil
}

func (r *Run) advance(to State) error {
	if transitions[r.state] != to {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, r.state, to)
	}
	r.state = to
	return nil
}

func (r *Run) fail(err error) error {
	r.state = StateFailed
	r.err = err
	return err
}
