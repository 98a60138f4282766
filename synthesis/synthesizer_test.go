package synthesis_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stubdoc/stubdoc/extractor/graph"
	"github.com/stubdoc/stubdoc/synthesis"
)

func newTestWorkspace(t *testing.T) *synthesis.Workspace {
	t.Helper()
	workspace, err := synthesis.NewWorkspace(context.Background(), t.TempDir(), false, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = workspace.Close(context.Background()) })
	return workspace
}

func stubUnit(path string, lines ...string) *graph.SourceUnit {
	return graph.NewSourceUnit(path, graph.KindStub, []byte(strings.Join(lines, "\n")+"\n"))
}

func withExample(entity *graph.Entity) *graph.Entity {
	entity.Examples = []*graph.Example{{Line: entity.DocLine, Source: "1"}}
	return entity
}

func TestSynthesize_StubPositionExact(t *testing.T) {
	unit := stubUnit("util.pyi",
		`def add(a: int, b: int) -> int:`,
		`    """Add two numbers.`,
		``,
		`    >>> add(2, 3)`,
		`    5`,
		`    """`,
	)
	unit.AddEntity(withExample(&graph.Entity{
		Name: "add", Kind: graph.KindFunction, Line: 1,
		DocLine: 2, DocEndLine: 6, DocCol: 4,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, filepath.Join(workspace.Root(), "util_doctest.py"), artifact.Path)
	assert.Equal(t, []string{"doc_add"}, artifact.Names)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")

	// Every documentation line sits at its original line number.
	assert.Equal(t, "", lines[0])
	assert.Equal(t, `def doc_add(): """Add two numbers.`, lines[1])
	assert.Equal(t, `    >>> add(2, 3)`, lines[3])
	assert.Equal(t, `    5`, lines[4])
	assert.Equal(t, `    """`, lines[5])
}

func TestSynthesize_StubFencedDocstringBlanksMarkers(t *testing.T) {
	unit := stubUnit("scale.pyi",
		`def scale(values: list, factor: int = 2) -> list:`,
		`    """Scale each value.`,
		``,
		"    ```python",
		`    >>> scale([1, 2])`,
		`    [2, 4]`,
		"    ```",
		`    """`,
	)
	unit.AddEntity(withExample(&graph.Entity{
		Name: "scale", Kind: graph.KindFunction, Line: 1,
		DocLine: 2, DocEndLine: 8, DocCol: 4,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")

	// Fence markers become blank lines: doctest would otherwise fold a
	// trailing marker into the wanted output. Example lines stay put.
	assert.Equal(t, "", lines[3])
	assert.Equal(t, `    >>> scale([1, 2])`, lines[4])
	assert.Equal(t, `    [2, 4]`, lines[5])
	assert.Equal(t, "", lines[6])
	assert.Equal(t, `    """`, lines[7])
}

func TestSynthesize_BlockEntity(t *testing.T) {
	unit := graph.NewSourceUnit("guide.md", graph.KindDocument, []byte(strings.Join([]string{
		"# Guide",
		"",
		"```python",
		">>> 1 + 1",
		"2",
		"```",
	}, "\n")+"\n"))
	unit.AddEntity(withExample(&graph.Entity{
		Name: "guide_b0", Kind: graph.KindBlock, Line: 3,
		Doc: ">>> 1 + 1\n2", DocLine: 4, DocEndLine: 5,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")

	assert.Equal(t, "", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, `def doc_guide_b0(): r"""`, lines[2])
	assert.Equal(t, ">>> 1 + 1", lines[3])
	assert.Equal(t, "2", lines[4])
	assert.Equal(t, `"""`, lines[5])
}

func TestSynthesize_BlockDelimiterFlip(t *testing.T) {
	unit := graph.NewSourceUnit("guide.md", graph.KindDocument, []byte(strings.Join([]string{
		"```python",
		`>>> print('a"""b')`,
		`a"""b`,
		"```",
	}, "\n")+"\n"))
	unit.AddEntity(withExample(&graph.Entity{
		Name: "document_b0", Kind: graph.KindBlock, Line: 1,
		Doc: ">>> print('a\"\"\"b')\na\"\"\"b", DocLine: 2, DocEndLine: 3,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	assert.Equal(t, "def doc_document_b0(): r'''", lines[0])
	assert.Equal(t, "'''", lines[3])
}

func TestSynthesize_BlockWithBothDelimitersDropped(t *testing.T) {
	unit := graph.NewSourceUnit("guide.md", graph.KindDocument, []byte("x\n"))
	unit.AddEntity(withExample(&graph.Entity{
		Name: "document_b0", Kind: graph.KindBlock, Line: 1,
		Doc: `""" and '''`, DocLine: 1, DocEndLine: 1,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	assert.Nil(t, artifact)
}

func TestSynthesize_NoEligibleEntities(t *testing.T) {
	unit := stubUnit("plain.pyi", `def f(x: int) -> int: ...`)
	unit.AddEntity(&graph.Entity{Name: "f", Kind: graph.KindFunction, Line: 1})

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	assert.Nil(t, artifact)
}

func TestSynthesize_NameCollisionOrdinals(t *testing.T) {
	unit := stubUnit("overloads.pyi",
		`def get(key: str) -> str:`,
		`    """>>> get('a')"""`,
		`def get(key: int) -> str:`,
		`    """>>> get(1)"""`,
	)
	unit.AddEntity(withExample(&graph.Entity{
		Name: "get", Kind: graph.KindFunction, Line: 1, DocLine: 2, DocEndLine: 2, DocCol: 4,
	}))
	unit.AddEntity(withExample(&graph.Entity{
		Name: "get", Kind: graph.KindFunction, Line: 3, DocLine: 4, DocEndLine: 4, DocCol: 4,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []string{"doc_get_1", "doc_get_2"}, artifact.Names)
}

func TestSynthesize_SanitizedCollisionOrdinals(t *testing.T) {
	// "A.b" and "A_b" sanitize to the same identifier; ordinals must keep
	// them apart instead of tripping the duplicate check.
	unit := stubUnit("mixed.pyi",
		`class A:`,
		`    def b(self) -> None:`,
		`        """>>> A().b()"""`,
		`def A_b() -> None:`,
		`    """>>> A_b()"""`,
	)
	unit.AddEntity(withExample(&graph.Entity{
		Name: "b", Qualifier: []string{"A"}, Kind: graph.KindMethod, Line: 2,
		DocLine: 3, DocEndLine: 3, DocCol: 8,
	}))
	unit.AddEntity(withExample(&graph.Entity{
		Name: "A_b", Kind: graph.KindFunction, Line: 4, DocLine: 5, DocEndLine: 5, DocCol: 4,
	}))

	workspace := newTestWorkspace(t)
	artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []string{"doc_A_b_1", "doc_A_b_2"}, artifact.Names)
}

func TestSynthesize_Deterministic(t *testing.T) {
	build := func() []byte {
		unit := stubUnit("util.pyi",
			`def add(a: int, b: int) -> int:`,
			`    """`,
			`    >>> add(2, 3)`,
			`    5`,
			`    """`,
		)
		unit.AddEntity(withExample(&graph.Entity{
			Name: "add", Kind: graph.KindFunction, Line: 1,
			DocLine: 2, DocEndLine: 5, DocCol: 4,
		}))
		workspace := newTestWorkspace(t)
		artifact, err := synthesis.New().Synthesize(context.Background(), workspace, unit)
		require.NoError(t, err)
		require.NotNil(t, artifact)
		data, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, build(), build())
}
