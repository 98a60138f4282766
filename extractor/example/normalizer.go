// Package example validates candidate regions and splits them into
// interactive-example sequences: prompt lines, continuations, and expected
// output. It never executes or type-checks content; malformed interactive
// syntax passes through verbatim and surfaces at harness time.
package example

import (
	"strings"

	"github.com/stubdoc/stubdoc/extractor/fence"
	"github.com/stubdoc/stubdoc/extractor/graph"
)

const (
	ps1 = ">>>"
	ps2 = "..."
)

// Normalize splits one region into examples. contentAbs is the unit-absolute
// line number of the region's first content line. A region yielding zero
// prompt lines is explanatory prose, not an example: it returns nil.
func Normalize(region *fence.Region, contentAbs int) []*graph.Example {
	lines := trimTrailingBlank(region.Lines)
	var examples []*graph.Example

	i := 0
	for i < len(lines) {
		prompt, ok := stripPrompt(lines[i], ps1)
		if !ok {
			i++
			continue
		}
		start := i
		source := []string{prompt}
		i++
		for i < len(lines) {
			continuation, ok := stripPrompt(lines[i], ps2)
			if !ok {
				break
			}
			source = append(source, continuation)
			i++
		}
		var want []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			if _, isNext := stripPrompt(lines[i], ps1); isNext {
				break
			}
			want = append(want, strings.TrimLeft(lines[i], " \t"))
			i++
		}
		examples = append(examples, &graph.Example{
			Line:   contentAbs + start,
			Source: strings.Join(source, "\n"),
			Want:   strings.Join(want, "\n"),
		})
	}
	return examples
}

// NormalizeAll runs every region of a documentation text through Normalize.
// docAbs is the unit-absolute line number of the documentation's first line.
func NormalizeAll(regions []*fence.Region, docAbs int) []*graph.Example {
	var examples []*graph.Example
	for _, region := range regions {
		contentAbs := docAbs + region.ContentLine - 1
		examples = append(examples, Normalize(region, contentAbs)...)
	}
	return examples
}

// stripPrompt returns the text after a prompt marker. A bare marker with no
// trailing content is an empty statement line, still part of the grammar.
func stripPrompt(line, marker string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == marker {
		return "", true
	}
	if strings.HasPrefix(trimmed, marker+" ") {
		return trimmed[len(marker)+1:], true
	}
	return "", false
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
