// Package document extracts documented pseudo-entities from prose documents:
// each executable fenced block becomes its own entity, named from the
// document's heading path so failures can be attributed to "which block
// under which heading".
package document

import (
	"fmt"
	"os"
	"strings"

	"github.com/stubdoc/stubdoc/extractor/example"
	"github.com/stubdoc/stubdoc/extractor/fence"
	"github.com/stubdoc/stubdoc/extractor/graph"
)

// Inspector provides functionality to inspect prose documents and extract
// fenced code blocks as documented pseudo-entities
type Inspector struct {
	filter *fence.Filter
}

// NewInspector creates a new document Inspector with the provided tag filter
func NewInspector(filter *fence.Filter) *Inspector {
	if filter == nil {
		filter = fence.NewFilter()
	}
	return &Inspector{filter: filter}
}

// InspectFile parses a document file and returns its source unit with entities
func (i *Inspector) InspectFile(filename string) (*graph.SourceUnit, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	unit := graph.NewSourceUnit(filename, graph.KindDocument, src)
	if err := i.Inspect(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Inspect populates the unit with one pseudo-entity per executable fenced
// block. Blocks whose tag does not pass the filter are skipped entirely;
// ordinals count the blocks that do, across the whole document, so names
// stay stable across repeated runs on unchanged input.
func (i *Inspector) Inspect(unit *graph.SourceUnit) error {
	text := string(unit.Source)
	regions, _ := fence.Scan(text)

	headings := headingIndex(unit.Lines(), regions)

	ordinal := 0
	for _, region := range i.filter.Regions(regions) {
		name := fmt.Sprintf("%s_b%d", headings.pathAt(region.StartLine), ordinal)
		ordinal++

		entity := &graph.Entity{
			Name:       name,
			Qualifier:  nil,
			Kind:       graph.KindBlock,
			Line:       region.StartLine,
			Doc:        strings.Join(region.Lines, "\n"),
			DocLine:    region.ContentLine,
			DocEndLine: region.EndLine - 1,
		}
		entity.Examples = example.Normalize(region, region.ContentLine)
		unit.AddEntity(entity)
	}
	return nil
}

// headings tracks the ATX heading stack by line, fence interiors excluded
type headings struct {
	lines []int    // heading line numbers, ascending
	paths []string // slugged heading path at each heading
}

// headingIndex walks the document once, maintaining a heading stack by level.
// Heading-looking lines inside fenced regions are literal text and ignored.
func headingIndex(lines []string, regions []*fence.Region) *headings {
	fenced := make(map[int]bool)
	for _, region := range regions {
		for l := region.StartLine; l <= region.EndLine; l++ {
			fenced[l] = true
		}
	}

	index := &headings{}
	type level struct {
		depth int
		slug  string
	}
	var stack []level
	for n, line := range lines {
		if fenced[n+1] {
			continue
		}
		depth, title, ok := parseHeading(line)
		if !ok {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, level{depth: depth, slug: slugify(title)})
		parts := make([]string, len(stack))
		for i, entry := range stack {
			parts[i] = entry.slug
		}
		index.lines = append(index.lines, n+1)
		index.paths = append(index.paths, strings.Join(parts, "_"))
	}
	return index
}

// pathAt returns the heading path in effect at the given line, or a default
// for blocks above the first heading
func (h *headings) pathAt(line int) string {
	path := "document"
	for i, headingLine := range h.lines {
		if headingLine >= line {
			break
		}
		path = h.paths[i]
	}
	return path
}

func parseHeading(line string) (depth int, title string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	for depth < len(trimmed) && trimmed[depth] == '#' {
		depth++
	}
	if depth == 0 || depth > 6 {
		return 0, "", false
	}
	rest := trimmed[depth:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return 0, "", false
	}
	title = strings.TrimSpace(strings.TrimRight(rest, "# "))
	if title == "" {
		return 0, "", false
	}
	return depth, title, true
}

// slugify reduces a heading title to an identifier-safe fragment
func slugify(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			builder.WriteByte('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}
