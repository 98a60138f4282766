package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	junit "github.com/joshdk/go-junit"
	"go.uber.org/zap"

	"github.com/stubdoc/stubdoc/extractor/graph"
)

// PytestHarness runs artifacts through pytest's doctest-module collection
// and parses the structured junit report it leaves behind
type PytestHarness struct {
	Executable string   // pytest binary, "pytest" by default
	ExtraArgs  []string // appended after the built-in flags
	logger     *zap.Logger
}

// NewPytestHarness creates a pytest harness
func NewPytestHarness(executable string, extraArgs []string, logger *zap.Logger) *PytestHarness {
	if executable == "" {
		executable = "pytest"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PytestHarness{Executable: executable, ExtraArgs: extraArgs, logger: logger}
}

// Run invokes pytest once across the whole artifact batch. A pytest exit
// status of 1 means collected tests failed and is not an invocation error;
// anything that prevents the report from being written is.
func (h *PytestHarness) Run(ctx context.Context, workspace string, artifacts []*graph.Artifact) ([]EntityOutcome, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}

	reportPath := filepath.Join(workspace, "report.xml")
	args := []string{"--doctest-modules", "-q", "--tb=short", "--junit-xml=" + reportPath}
	args = append(args, h.ExtraArgs...)
	for _, artifact := range artifacts {
		args = append(args, artifact.Path)
	}

	cmd := exec.CommandContext(ctx, h.Executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	h.logger.Debug("harness finished",
		zap.String("executable", h.Executable),
		zap.Error(runErr))

	report, err := os.ReadFile(reportPath)
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if runErr != nil {
			return nil, fmt.Errorf("harness invocation failed: %w: %s", runErr, detail)
		}
		return nil, fmt.Errorf("harness produced no report at %s: %s", reportPath, detail)
	}
	return parseJUnitReport(report)
}

var lineRefPattern = regexp.MustCompile(`line (\d+)`)

// parseJUnitReport turns pytest's junit report into entity outcomes. Doctest
// failure bodies carry the precise artifact line and the Expected/Got blocks;
// the junit line attribute is only a collection-time approximation.
func parseJUnitReport(data []byte) ([]EntityOutcome, error) {
	suites, err := junit.Ingest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse harness report: %w", err)
	}

	var outcomes []EntityOutcome
	collectTests(suites, func(test junit.Test) {
		if test.Status == junit.StatusSkipped {
			return
		}
		outcome := EntityOutcome{
			Artifact: testArtifact(test),
			Name:     entityName(test.Name),
			Line:     attrLine(test) + 1,
			Status:   graph.StatusPassed,
		}
		switch test.Status {
		case junit.StatusError:
			outcome.Status = graph.StatusErrored
			outcome.Message = testDetail(test)
			refineFromBody(&outcome)
		case junit.StatusFailed:
			outcome.Status = graph.StatusFailed
			outcome.Message = testDetail(test)
			refineFromBody(&outcome)
		}
		outcomes = append(outcomes, outcome)
	})
	return outcomes, nil
}

func collectTests(suites []junit.Suite, visit func(junit.Test)) {
	for _, suite := range suites {
		for _, test := range suite.Tests {
			visit(test)
		}
		collectTests(suite.Suites, visit)
	}
}

// testArtifact resolves the artifact a testcase belongs to. Older pytest
// versions omit the file attribute on doctest items; the classname carries
// the module name then.
func testArtifact(test junit.Test) string {
	if file := test.Properties["file"]; file != "" {
		return file
	}
	module := test.Classname
	if idx := strings.LastIndex(module, "."); idx >= 0 {
		module = module[idx+1:]
	}
	return module + ".py"
}

// attrLine reads the zero-based line attribute pytest sets at collection time
func attrLine(test junit.Test) int {
	line, err := strconv.Atoi(test.Properties["line"])
	if err != nil {
		return 0
	}
	return line
}

// entityName strips the module qualification pytest prepends to doctest ids
func entityName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func testDetail(test junit.Test) string {
	var report junit.Error
	if errors.As(test.Error, &report) {
		if body := strings.TrimSpace(report.Body); body != "" {
			return body
		}
		return strings.TrimSpace(report.Message)
	}
	if test.Error != nil {
		return test.Error.Error()
	}
	return ""
}

// refineFromBody recovers the artifact line and the expected/actual output
// blocks from a doctest failure report
func refineFromBody(outcome *EntityOutcome) {
	if match := lineRefPattern.FindStringSubmatch(outcome.Message); match != nil {
		var line int
		if _, err := fmt.Sscanf(match[1], "%d", &line); err == nil && line > 0 {
			outcome.Line = line
		}
	}
	if outcome.Status != graph.StatusFailed {
		return
	}
	outcome.Expected = section(outcome.Message, "Expected:", "Got:")
	outcome.Actual = section(outcome.Message, "Got:", "")
	if strings.Contains(outcome.Message, "Expected nothing") {
		outcome.Expected = ""
	}
	if strings.Contains(outcome.Message, "Got nothing") {
		outcome.Actual = ""
	}
}

// section extracts the indented block between two doctest report markers
func section(body, start, end string) string {
	idx := strings.Index(body, start)
	if idx < 0 {
		return ""
	}
	rest := body[idx+len(start):]
	if end != "" {
		if stop := strings.Index(rest, end); stop >= 0 {
			rest = rest[:stop]
		}
	}
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}
