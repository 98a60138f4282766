package graph

// Status is the closed set of per-entity and per-unit outcomes
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	// StatusNoOp marks a unit that yielded no examples: success by absence
	StatusNoOp Status = "noop"
)

// Outcome is the result of executing one entity's examples, re-attributed
// to the original source location
type Outcome struct {
	Name     string // Emitted declaration name
	Line     int    // Original source line
	Status   Status
	Expected string // Failure detail: expected output
	Actual   string // Failure detail: actual output
	Message  string // Error detail or harness traceback
}

// UnitResult aggregates outcomes for one source unit
type UnitResult struct {
	Path     string
	Status   Status
	Outcomes []*Outcome
	Message  string // Discovery or harness error detail
}

// Add records an outcome and degrades the unit status accordingly
func (u *UnitResult) Add(outcome *Outcome) {
	u.Outcomes = append(u.Outcomes, outcome)
	switch outcome.Status {
	case StatusErrored:
		u.Status = StatusErrored
	case StatusFailed:
		if u.Status != StatusErrored {
			u.Status = StatusFailed
		}
	case StatusPassed:
		if u.Status == "" || u.Status == StatusNoOp {
			u.Status = StatusPassed
		}
	}
}

// RunResult is the aggregate outcome of one invocation, immutable once returned
type RunResult struct {
	Passed       int
	Failed       int
	Errored      int
	SkippedEmpty int // Units without any example
	Units        []*UnitResult
	Success      bool
	Message      string
}

// AddUnit appends a unit result and folds its outcomes into the counters
func (r *RunResult) AddUnit(unit *UnitResult) {
	r.Units = append(r.Units, unit)
	if unit.Status == StatusNoOp {
		r.SkippedEmpty++
		return
	}
	if unit.Status == StatusErrored && len(unit.Outcomes) == 0 {
		r.Errored++
		return
	}
	for _, outcome := range unit.Outcomes {
		switch outcome.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		case StatusErrored:
			r.Errored++
		}
	}
}

// Finalize computes the overall success flag. A run over zero units is a
// failure: nothing to test is a misconfiguration, not a silent success.
func (r *RunResult) Finalize() {
	if len(r.Units) == 0 {
		r.Success = false
		if r.Message == "" {
			r.Message = "no eligible source units found"
		}
		return
	}
	r.Success = r.Failed == 0 && r.Errored == 0
}
