package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// RunState represents where a run is in its lifecycle
type RunState string

const (
	StatePending        RunState = "pending"
	StateCheckedOut     RunState = "checked_out"
	StateToolchainReady RunState = "toolchain_ready"
	StateBuilt          RunState = "built"
	StatePublished      RunState = "published"
	StateSkipped        RunState = "skipped"
	StateDone           RunState = "done"
	StateFailed         RunState = "failed"
)

// transitions is the legal forward edge set of the run lifecycle.
// Failed is reachable from any non-terminal state and is handled separately.
var transitions = map[RunState][]RunState{
	StatePending:        {StateCheckedOut},
	StateCheckedOut:     {StateToolchainReady},
	StateToolchainReady: {StateBuilt},
	StateBuilt:          {StatePublished, StateSkipped},
	StatePublished:      {StateDone},
	StateSkipped:        {StateDone},
}

// IsTerminal reports whether no further transitions are possible
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether s -> to is a legal transition
func (s RunState) CanTransition(to RunState) bool {
	if to == StateFailed {
		return !s.IsTerminal()
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// StepName identifies a pipeline step
type StepName string

const (
	StepCheckout  StepName = "checkout"
	StepToolchain StepName = "toolchain"
	StepBuild     StepName = "build"
	StepPublish   StepName = "publish"
)

// StepOutcome is the result classification of a single step
type StepOutcome string

const (
	StepOutcomeSuccess StepOutcome = "success"
	StepOutcomeFailure StepOutcome = "failure"
	StepOutcomeSkipped StepOutcome = "skipped"
)

// StepResult records one executed (or skipped) step of a run
type StepResult struct {
	Name      StepName
	Outcome   StepOutcome
	Log       string // Combined output captured from the step
	StartedAt time.Time
	Duration  time.Duration
}

// Run is one complete execution of the pipeline for one triggering event.
// Steps execute strictly sequentially; any step failure moves the run to
// Failed and nothing after it executes.
type Run struct {
	ID         string
	Workflow   string // Workflow name the run was started from
	Event      EventContext
	State      RunState
	Steps      []StepResult
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string // Failure reason when State == Failed
}

// Advance moves the run to the next state, rejecting illegal transitions
func (r *Run) Advance(to RunState) error {
	if !r.State.CanTransition(to) {
		return goerr.New("illegal run state transition",
			goerr.V("run_id", r.ID),
			goerr.V("from", r.State),
			goerr.V("to", to),
		)
	}
	r.State = to
	if to.IsTerminal() {
		r.FinishedAt = time.Now()
	}
	return nil
}

// Fail moves the run to Failed from any non-terminal state
func (r *Run) Fail(err error) {
	if r.State.IsTerminal() {
		return
	}
	r.State = StateFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now()
}

// RecordStep appends a step result to the run history
func (r *Run) RecordStep(result StepResult) {
	r.Steps = append(r.Steps, result)
}

// Published reports whether the run actually pushed output to the hosting branch
func (r *Run) Published() bool {
	return r.State == StateDone && r.hasStepOutcome(StepPublish, StepOutcomeSuccess) ||
		r.State == StatePublished
}

func (r *Run) hasStepOutcome(name StepName, outcome StepOutcome) bool {
	for _, s := range r.Steps {
		if s.Name == name && s.Outcome == outcome {
			return true
		}
	}
	return false
}

// FailedStep returns the step that caused the run to fail, if any
func (r *Run) FailedStep() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Outcome == StepOutcomeFailure {
			return s, true
		}
	}
	return StepResult{}, false
}
