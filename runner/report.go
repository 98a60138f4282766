package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/stubdoc/stubdoc/extractor/graph"
)

// WriteReport renders a human-readable summary of a run. Failures show the
// original file and line plus an expected/actual diff; errors show the
// harness traceback. Verbose mode also lists passing entities.
func WriteReport(w io.Writer, result *graph.RunResult, verbose bool) {
	for _, unit := range result.Units {
		switch unit.Status {
		case graph.StatusNoOp:
			if verbose {
				fmt.Fprintf(w, "i %s: no examples\n", unit.Path)
			}
			continue
		case graph.StatusPassed:
			if !verbose {
				continue
			}
		}
		for _, outcome := range unit.Outcomes {
			writeOutcome(w, unit.Path, outcome, verbose)
		}
		if unit.Message != "" && len(unit.Outcomes) == 0 {
			fmt.Fprintf(w, "E %s: %s\n", unit.Path, unit.Message)
		}
	}

	if result.Message != "" {
		fmt.Fprintf(w, "error: %s\n", result.Message)
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d errored, %d without examples\n",
		result.Passed, result.Failed, result.Errored, result.SkippedEmpty)
	if result.Success {
		fmt.Fprintln(w, "all examples passed")
	} else {
		fmt.Fprintln(w, "some examples failed")
	}
}

func writeOutcome(w io.Writer, path string, outcome *graph.Outcome, verbose bool) {
	switch outcome.Status {
	case graph.StatusPassed:
		if verbose {
			fmt.Fprintf(w, "+ %s:%d %s\n", path, outcome.Line, outcome.Name)
		}
	case graph.StatusFailed:
		fmt.Fprintf(w, "F %s:%d %s\n", path, outcome.Line, outcome.Name)
		fmt.Fprintf(w, "  expected: %s\n", indentBlock(outcome.Expected))
		fmt.Fprintf(w, "  actual:   %s\n", indentBlock(outcome.Actual))
		if diff := renderDiff(outcome.Expected, outcome.Actual); diff != "" {
			fmt.Fprintf(w, "  diff:     %s\n", indentBlock(diff))
		}
	case graph.StatusErrored:
		fmt.Fprintf(w, "E %s:%d %s\n", path, outcome.Line, outcome.Name)
		if outcome.Message != "" {
			fmt.Fprintf(w, "  %s\n", indentBlock(outcome.Message))
		}
	}
}

// renderDiff produces a compact character diff between expected and actual
// output; empty when either side is empty, where a diff adds nothing
func renderDiff(expected, actual string) string {
	if expected == "" || actual == "" {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var builder strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			builder.WriteString("[-" + diff.Text + "-]")
		case diffmatchpatch.DiffInsert:
			builder.WriteString("[+" + diff.Text + "+]")
		default:
			builder.WriteString(diff.Text)
		}
	}
	return builder.String()
}

func indentBlock(text string) string {
	return strings.ReplaceAll(text, "\n", "\n            ")
}
