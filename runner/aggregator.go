package runner

import (
	"context"
	"path/filepath"

	"github.com/viant/afs"
	"go.uber.org/zap"

	"github.com/stubdoc/stubdoc/extractor"
	"github.com/stubdoc/stubdoc/extractor/graph"
	"github.com/stubdoc/stubdoc/synthesis"
)

// Aggregator drives the batch: extraction and synthesis strictly
// sequentially per unit (artifact naming is order-dependent and must stay
// deterministic), one blocking harness call across all artifacts, then
// re-attribution of outcomes to original source lines.
type Aggregator struct {
	factory     *extractor.Factory
	synthesizer *synthesis.Synthesizer
	harness     Harness
	fs          afs.Service
	logger      *zap.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(factory *extractor.Factory, synthesizer *synthesis.Synthesizer, harness Harness, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		factory:     factory,
		synthesizer: synthesizer,
		harness:     harness,
		fs:          afs.New(),
		logger:      logger,
	}
}

type unitBinding struct {
	artifact *graph.Artifact
	result   *graph.UnitResult
}

// Run processes the discovered units and returns the aggregate result. Only
// a synthesis invariant violation or an artifact write failure aborts the
// run; every other problem is folded into the result. A run over zero units
// finalizes as a failure.
func (a *Aggregator) Run(ctx context.Context, units []*graph.SourceUnit, workspace *synthesis.Workspace) (*graph.RunResult, error) {
	result := &graph.RunResult{}

	bindings := make(map[string]*unitBinding)
	var artifacts []*graph.Artifact
	var unitResults []*graph.UnitResult

	for _, unit := range units {
		unitResult := &graph.UnitResult{Path: unit.Path, Status: graph.StatusNoOp}
		unitResults = append(unitResults, unitResult)

		if unit.LoadErr != nil {
			unitResult.Status = graph.StatusErrored
			unitResult.Message = unit.LoadErr.Error()
			a.logger.Warn("unreadable source unit", zap.String("path", unit.Path), zap.Error(unit.LoadErr))
			continue
		}
		if err := a.factory.Inspect(unit); err != nil {
			unitResult.Status = graph.StatusErrored
			unitResult.Message = err.Error()
			continue
		}

		artifact, err := a.synthesizer.Synthesize(ctx, workspace, unit)
		if err != nil {
			return nil, err
		}
		if artifact == nil {
			a.logger.Debug("no examples", zap.String("path", unit.Path))
			continue
		}
		a.logger.Debug("synthesized",
			zap.String("path", unit.Path),
			zap.String("artifact", artifact.Path),
			zap.Strings("names", artifact.Names))
		artifacts = append(artifacts, artifact)
		bindings[filepath.Base(artifact.Path)] = &unitBinding{artifact: artifact, result: unitResult}
	}

	if len(artifacts) > 0 {
		a.attribute(ctx, workspace.Root(), artifacts, bindings)
	}

	for _, unitResult := range unitResults {
		result.AddUnit(unitResult)
	}
	result.Finalize()
	return result, nil
}

// attribute runs the harness and maps every outcome from artifact
// coordinates back to original source coordinates
func (a *Aggregator) attribute(ctx context.Context, root string, artifacts []*graph.Artifact, bindings map[string]*unitBinding) {
	outcomes, err := a.harness.Run(ctx, root, artifacts)
	if err != nil {
		// Harness crash: every artifact-bearing unit becomes an error
		// outcome. Examples are deterministic by contract, so no retry.
		a.logger.Warn("harness failed", zap.Error(err))
		for _, artifact := range artifacts {
			binding := bindings[filepath.Base(artifact.Path)]
			binding.result.Add(&graph.Outcome{
				Name:    artifact.Unit.Stem(),
				Status:  graph.StatusErrored,
				Message: err.Error(),
			})
		}
		return
	}

	// Outcome lines are only meaningful against the bytes that were
	// inspected; a unit rewritten while the harness ran gets an error
	// outcome instead of misattributed lines.
	stale := make(map[string]bool)
	for _, artifact := range artifacts {
		if !a.sourceChanged(ctx, artifact.Unit) {
			continue
		}
		stale[filepath.Base(artifact.Path)] = true
		bindings[filepath.Base(artifact.Path)].result.Add(&graph.Outcome{
			Name:    artifact.Unit.Stem(),
			Status:  graph.StatusErrored,
			Message: "source changed during the run; results discarded",
		})
	}

	for _, outcome := range outcomes {
		binding := bindings[filepath.Base(outcome.Artifact)]
		if binding == nil {
			a.logger.Warn("outcome for unknown artifact", zap.String("artifact", outcome.Artifact))
			continue
		}
		if stale[filepath.Base(outcome.Artifact)] {
			continue
		}
		// Padding keeps artifacts position-exact, so the artifact-local
		// line is already the original line.
		binding.result.Add(&graph.Outcome{
			Name:     outcome.Name,
			Line:     outcome.Line,
			Status:   outcome.Status,
			Expected: outcome.Expected,
			Actual:   outcome.Actual,
			Message:  outcome.Message,
		})
	}

	// An artifact the harness stayed silent about is an execution error,
	// not a silent pass.
	for _, artifact := range artifacts {
		binding := bindings[filepath.Base(artifact.Path)]
		if len(binding.result.Outcomes) == 0 {
			binding.result.Add(&graph.Outcome{
				Name:    artifact.Unit.Stem(),
				Status:  graph.StatusErrored,
				Message: "harness reported no outcomes for artifact",
			})
		}
	}
}

// sourceChanged re-hashes the unit's on-disk content and compares it with
// the identity captured at discovery. Unreadable-now is not evidence of
// change: only a verified divergence discards results.
func (a *Aggregator) sourceChanged(ctx context.Context, unit *graph.SourceUnit) bool {
	data, err := a.fs.DownloadWithURL(ctx, unit.Path)
	if err != nil {
		return false
	}
	identity, err := graph.Hash(data)
	if err != nil {
		return false
	}
	return identity != unit.Identity
}
