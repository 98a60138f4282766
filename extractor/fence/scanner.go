// Package fence locates candidate code regions in raw text: fenced code
// blocks, and bare interactive-example blocks inside documentation text.
package fence

import (
	"sort"
	"strings"
)

// Region is one candidate code region with its literal line coordinates
type Region struct {
	StartLine   int      // Line of the fence opener, or of the first prompt for bare regions
	EndLine     int      // Line of the fence closer, or of the last line for bare regions
	ContentLine int      // Line of the first content line
	Tag         string   // Lowercased language tag; empty for untagged fences and bare regions
	Lines       []string // Content lines, markers excluded
	Bare        bool     // True for prompt blocks found outside any fence
}

// Anomaly records a fence opener with no matching closer. The span through
// Through is treated as the discarded region's content.
type Anomaly struct {
	Line    int // Opener line
	Through int // Last tainted line
}

// Filter selects fenced regions by language tag, case-insensitively.
// An empty tag on a fence matches when the filter admits the implicit default.
type Filter struct {
	tags map[string]bool
}

// DefaultTags are the language tags treated as executable when no
// configuration overrides them. The empty entry admits untagged fences.
var DefaultTags = []string{"python", "py", "pycon", ""}

// NewFilter builds a tag filter; with no tags it admits the defaults
func NewFilter(tags ...string) *Filter {
	if len(tags) == 0 {
		tags = DefaultTags
	}
	filter := &Filter{tags: make(map[string]bool, len(tags))}
	for _, tag := range tags {
		filter.tags[strings.ToLower(tag)] = true
	}
	return filter
}

// Match reports whether a fence tag passes the filter
func (f *Filter) Match(tag string) bool {
	return f.tags[strings.ToLower(tag)]
}

// Regions keeps only the regions whose tag passes the filter. Bare regions
// always pass: they exist only where the caller asked for them.
func (f *Filter) Regions(regions []*Region) []*Region {
	var kept []*Region
	for _, region := range regions {
		if region.Bare || f.Match(region.Tag) {
			kept = append(kept, region)
		}
	}
	return kept
}

const (
	stateOutside = iota
	stateInFence
)

// Scan walks text line by line and returns every well-formed fenced region
// regardless of tag, plus the anomalies for openers that never close.
//
// Content lines of a well-formed fence are never re-scanned for openers: once
// inside a fence, only an exact closing marker (same indentation, equal or
// greater run length, nothing else on the line) ends the region. An opener
// with no closer yields an anomaly and scanning resumes on the next line, so
// a later unrelated fence is still found.
func Scan(text string) ([]*Region, []*Anomaly) {
	lines := splitLines(text)
	var regions []*Region
	var anomalies []*Anomaly

	state := stateOutside
	var openerIdx, openerRun int
	var openerIndent, openerTag string

	i := 0
	for i < len(lines) {
		switch state {
		case stateOutside:
			if indent, run, tag, ok := parseOpener(lines[i]); ok {
				openerIdx, openerIndent, openerRun, openerTag = i, indent, run, tag
				state = stateInFence
			}
			i++
		case stateInFence:
			if !isCloser(lines[i], openerIndent, openerRun) {
				i++
				continue
			}
			regions = append(regions, &Region{
				StartLine:   openerIdx + 1,
				EndLine:     i + 1,
				ContentLine: openerIdx + 2,
				Tag:         openerTag,
				Lines:       lines[openerIdx+1 : i],
			})
			state = stateOutside
			i++
		}
		if i == len(lines) && state == stateInFence {
			// Opener with no closer: non-fatal anomaly. Resume on the line
			// after the opener so later unrelated fences are still found.
			anomalies = append(anomalies, &Anomaly{Line: openerIdx + 1})
			state = stateOutside
			i = openerIdx + 1
		}
	}

	taint(anomalies, regions, len(lines))
	return regions, anomalies
}

// ScanDoc scans documentation text: fenced regions filtered by tag, plus bare
// interactive-example blocks found outside fences and outside anomaly spans.
// Regions come back ordered by start line.
func ScanDoc(text string, filter *Filter) []*Region {
	lines := splitLines(text)
	regions, anomalies := Scan(text)

	excluded := make([]bool, len(lines))
	for _, region := range regions {
		for l := region.StartLine; l <= region.EndLine; l++ {
			excluded[l-1] = true
		}
	}
	for _, anomaly := range anomalies {
		for l := anomaly.Line; l <= anomaly.Through; l++ {
			excluded[l-1] = true
		}
	}

	result := filter.Regions(regions)
	i := 0
	for i < len(lines) {
		if excluded[i] || !isPrompt(lines[i]) {
			i++
			continue
		}
		start := i
		for i < len(lines) && !excluded[i] && strings.TrimSpace(lines[i]) != "" {
			i++
		}
		result = append(result, &Region{
			StartLine:   start + 1,
			EndLine:     i,
			ContentLine: start + 1,
			Lines:       lines[start:i],
			Bare:        true,
		})
	}

	sort.SliceStable(result, func(a, b int) bool {
		return result[a].StartLine < result[b].StartLine
	})
	return result
}

// taint extends each anomaly through the next well-formed fence or EOF, so
// callers can exclude the orphan's would-be content from example scanning
func taint(anomalies []*Anomaly, regions []*Region, lineCount int) {
	for _, anomaly := range anomalies {
		anomaly.Through = lineCount
		for _, region := range regions {
			if region.StartLine > anomaly.Line {
				anomaly.Through = region.StartLine - 1
				break
			}
		}
	}
}

// parseOpener recognizes a fence opener: optional indentation, a run of three
// or more backticks, and an optional info string whose first word is the tag.
// An info string containing a backtick disqualifies the line.
func parseOpener(line string) (indent string, run int, tag string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent = line[:len(line)-len(trimmed)]
	run = runLength(trimmed)
	if run < 3 {
		return "", 0, "", false
	}
	info := strings.TrimSpace(trimmed[run:])
	if strings.Contains(info, "`") {
		return "", 0, "", false
	}
	if fields := strings.Fields(info); len(fields) > 0 {
		tag = strings.ToLower(fields[0])
	}
	return indent, run, tag, true
}

// isCloser recognizes a closing marker for a fence opened with the given
// indentation and run length: same indentation, an equal-or-greater run,
// and nothing else on the line
func isCloser(line, indent string, run int) bool {
	if !strings.HasPrefix(line, indent) {
		return false
	}
	rest := line[len(indent):]
	length := runLength(rest)
	if length < run {
		return false
	}
	return strings.TrimSpace(rest[length:]) == ""
}

func isPrompt(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return trimmed == ">>>" || strings.HasPrefix(trimmed, ">>> ")
}

func runLength(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
