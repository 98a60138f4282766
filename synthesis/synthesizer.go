// Package synthesis emits synthetic, independently executable modules from
// extracted source units. Artifacts are padded with blank filler lines so a
// failure reported at line N of an artifact points at line N of the original
// file.
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/stubdoc/stubdoc/extractor/graph"
)

// fenceLinePattern recognizes a markdown fence marker standing alone on a
// docstring line. Reproduced verbatim, a trailing marker would be folded
// into the example's wanted output at execution time.
var fenceLinePattern = regexp.MustCompile("^[ \t]*`{3,}[^`]*$")

// Synthesizer turns a source unit's example-bearing entities into one
// source-mapped artifact
type Synthesizer struct{}

// New creates a Synthesizer
func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize emits the artifact for a unit into the workspace. A unit with
// zero example-bearing entities emits nothing and returns (nil, nil): that
// is a no-op success, not an error. Output is a pure function of the unit
// content, so re-running on identical input is byte-identical.
func (s *Synthesizer) Synthesize(ctx context.Context, workspace *Workspace, unit *graph.SourceUnit) (*graph.Artifact, error) {
	eligible := emittable(unit.Eligible())
	if len(eligible) == 0 {
		return nil, nil
	}

	names, err := assignNames(eligible)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", unit.Path, err)
	}

	lines := unit.Lines()
	var out []string

	padTo := func(line int) {
		for len(out) < line-1 {
			out = append(out, "")
		}
	}

	for idx, entity := range eligible {
		name := names[idx]
		if entity.Kind == graph.KindBlock {
			delimiter := `"""`
			if strings.Contains(entity.Doc, `"""`) {
				delimiter = "'''"
			}
			padTo(entity.Line)
			out = append(out, fmt.Sprintf("def %s(): r%s", name, delimiter))
			for l := entity.DocLine; l <= entity.DocEndLine && l-1 < len(lines); l++ {
				out = append(out, lines[l-1])
			}
			out = append(out, delimiter)
			continue
		}
		// Stub entity: the declaration replaces everything before the
		// docstring opener; the documentation text itself is reproduced
		// at its original lines, with fence markers blanked so they do
		// not leak into expected output.
		if entity.DocLine < 1 || entity.DocLine-1 >= len(lines) {
			continue
		}
		padTo(entity.DocLine)
		opener := lines[entity.DocLine-1]
		if entity.DocCol <= len(opener) {
			opener = opener[entity.DocCol:]
		}
		out = append(out, fmt.Sprintf("def %s(): %s", name, opener))
		for l := entity.DocLine + 1; l <= entity.DocEndLine && l-1 < len(lines); l++ {
			line := lines[l-1]
			if fenceLinePattern.MatchString(line) {
				line = ""
			}
			out = append(out, line)
		}
	}

	path := workspace.ArtifactPath(unit.Stem())
	content := strings.Join(out, "\n") + "\n"
	if err := workspace.Write(ctx, path, []byte(content)); err != nil {
		return nil, fmt.Errorf("failed to write artifact for %s: %w", unit.Path, err)
	}

	return &graph.Artifact{
		Path:  path,
		Unit:  unit,
		Names: names,
	}, nil
}

// emittable drops blocks that no string delimiter can wrap: content carrying
// both triple-quote forms is an extraction anomaly, surfaced by absence
func emittable(entities []*graph.Entity) []*graph.Entity {
	var kept []*graph.Entity
	for _, entity := range entities {
		if entity.Kind == graph.KindBlock &&
			strings.Contains(entity.Doc, `"""`) && strings.Contains(entity.Doc, "'''") {
			continue
		}
		kept = append(kept, entity)
	}
	return kept
}

// assignNames derives the emitted declaration names. A qualified name that
// appears more than once gets ordinal suffixes in appearance order, every
// occurrence suffixed, so the mapping is stable across repeated runs. A
// collision that survives disambiguation indicates a synthesizer bug and is
// fatal to the whole run.
func assignNames(entities []*graph.Entity) ([]string, error) {
	counts := make(map[string]int)
	for _, entity := range entities {
		counts["doc_"+sanitize(entity.QualifiedName())]++
	}

	names := make([]string, len(entities))
	ordinals := make(map[string]int)
	seen := make(map[string]bool)
	for i, entity := range entities {
		base := "doc_" + sanitize(entity.QualifiedName())
		name := base
		if counts[base] > 1 {
			ordinals[base]++
			name = fmt.Sprintf("%s_%d", base, ordinals[base])
		}
		if seen[name] {
			return nil, fmt.Errorf("internal invariant violation: duplicate artifact name %q", name)
		}
		seen[name] = true
		names[i] = name
	}
	return names, nil
}

// sanitize reduces a qualified name to a valid Python identifier fragment
func sanitize(name string) string {
	var builder strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}
