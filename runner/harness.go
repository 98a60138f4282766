// Package runner orchestrates a full batch: extraction and synthesis per
// unit, one batched harness invocation, and re-attribution of every outcome
// back to the original source location.
package runner

import (
	"context"

	"github.com/stubdoc/stubdoc/extractor/graph"
)

// EntityOutcome is the harness-side result for one emitted declaration,
// still expressed in artifact coordinates
type EntityOutcome struct {
	Artifact string // Artifact path as reported by the harness
	Name     string // Emitted declaration name
	Line     int    // Artifact-local line number
	Status   graph.Status
	Expected string // Failure detail
	Actual   string // Failure detail
	Message  string // Error traceback or harness diagnostic
}

// Harness executes a batch of synthesized artifacts in doctest-style module
// mode and reports one outcome per emitted declaration. The invocation is
// batched, not per-file, to amortize startup cost. Its own flag surface and
// configuration discovery are not this package's concern.
type Harness interface {
	Run(ctx context.Context, workspace string, artifacts []*graph.Artifact) ([]EntityOutcome, error)
}
