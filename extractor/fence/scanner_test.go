package fence_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stubdoc/stubdoc/extractor/fence"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantRegions []*fence.Region
		wantOrphans []int
	}{
		{
			name: "single well-formed fence",
			text: join(
				"intro",
				"```python",
				">>> 1 + 1",
				"2",
				"```",
				"outro",
			),
			wantRegions: []*fence.Region{
				{StartLine: 2, EndLine: 5, ContentLine: 3, Tag: "python", Lines: []string{">>> 1 + 1", "2"}},
			},
		},
		{
			name: "two fence pairs yield two regions",
			text: join(
				"```python",
				"a",
				"```",
				"text",
				"```py",
				"b",
				"```",
			),
			wantRegions: []*fence.Region{
				{StartLine: 1, EndLine: 3, ContentLine: 2, Tag: "python", Lines: []string{"a"}},
				{StartLine: 5, EndLine: 7, ContentLine: 6, Tag: "py", Lines: []string{"b"}},
			},
		},
		{
			name: "untagged fence",
			text: join("```", "x", "```"),
			wantRegions: []*fence.Region{
				{StartLine: 1, EndLine: 3, ContentLine: 2, Tag: "", Lines: []string{"x"}},
			},
		},
		{
			name: "closer may be longer than opener",
			text: join("```python", "x", "`````"),
			wantRegions: []*fence.Region{
				{StartLine: 1, EndLine: 3, ContentLine: 2, Tag: "python", Lines: []string{"x"}},
			},
		},
		{
			name: "shorter run inside fence is literal content",
			text: join(
				"````python",
				">>> print('fence')",
				"```",
				"````",
			),
			wantRegions: []*fence.Region{
				{StartLine: 1, EndLine: 4, ContentLine: 2, Tag: "python", Lines: []string{">>> print('fence')", "```"}},
			},
		},
		{
			name: "indented marker does not close an unindented fence",
			text: join(
				"```python",
				"x",
				"  ```",
				"```",
			),
			wantRegions: []*fence.Region{
				{StartLine: 1, EndLine: 4, ContentLine: 2, Tag: "python", Lines: []string{"x", "  ```"}},
			},
		},
		{
			name: "unterminated fence yields an anomaly and no region",
			text: join("```python", ">>> 1 + 1", "2"),
			wantOrphans: []int{1},
		},
		{
			name: "orphan opener does not swallow a later differently indented fence",
			text: join(
				"```python",
				">>> 1 + 1",
				"2",
				"  ```python",
				"  >>> 2 + 2",
				"  4",
				"  ```",
			),
			wantRegions: []*fence.Region{
				{StartLine: 4, EndLine: 7, ContentLine: 5, Tag: "python", Lines: []string{"  >>> 2 + 2", "  4"}},
			},
			wantOrphans: []int{1},
		},
		{
			name:        "no fences at all",
			text:        join("just", "prose"),
			wantRegions: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions, anomalies := fence.Scan(tt.text)
			assert.Equal(t, tt.wantRegions, regions)
			var orphans []int
			for _, anomaly := range anomalies {
				orphans = append(orphans, anomaly.Line)
			}
			assert.Equal(t, tt.wantOrphans, orphans)
		})
	}
}

func TestScan_AnomalyTaint(t *testing.T) {
	text := join(
		"```python",
		">>> 1 + 1",
		"2",
		"  ```python",
		"  >>> 2 + 2",
		"  4",
		"  ```",
	)
	_, anomalies := fence.Scan(text)
	if assert.Len(t, anomalies, 1) {
		assert.Equal(t, 1, anomalies[0].Line)
		assert.Equal(t, 3, anomalies[0].Through)
	}
}

func TestFilter(t *testing.T) {
	filter := fence.NewFilter()
	assert.True(t, filter.Match("python"))
	assert.True(t, filter.Match("Python"))
	assert.True(t, filter.Match("PYCON"))
	assert.True(t, filter.Match(""))
	assert.False(t, filter.Match("text"))

	custom := fence.NewFilter("python")
	assert.True(t, custom.Match("python"))
	assert.False(t, custom.Match(""))
}

func TestScanDoc(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []*fence.Region
	}{
		{
			name: "bare interactive block",
			text: join(
				"Add two numbers.",
				"",
				">>> add(2, 3)",
				"5",
			),
			want: []*fence.Region{
				{StartLine: 3, EndLine: 4, ContentLine: 3, Lines: []string{">>> add(2, 3)", "5"}, Bare: true},
			},
		},
		{
			name: "fenced and bare regions combine in order",
			text: join(
				">>> first()",
				"1",
				"",
				"```python",
				">>> second()",
				"2",
				"```",
			),
			want: []*fence.Region{
				{StartLine: 1, EndLine: 2, ContentLine: 1, Lines: []string{">>> first()", "1"}, Bare: true},
				{StartLine: 4, EndLine: 7, ContentLine: 5, Tag: "python", Lines: []string{">>> second()", "2"}},
			},
		},
		{
			name: "unterminated fence taints its would-be content",
			text: join("```python", ">>> 1 + 1", "2"),
			want: nil,
		},
		{
			name: "non-matching tag is skipped and not re-scanned as bare",
			text: join(
				"```text",
				">>> 1 + 1",
				"2",
				"```",
			),
			want: nil,
		},
		{
			name: "prose only",
			text: join("Nothing to run here."),
			want: nil,
		},
	}

	filter := fence.NewFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fence.ScanDoc(tt.text, filter))
		})
	}
}

func join(lines ...string) string {
	return strings.Join(lines, "\n")
}
