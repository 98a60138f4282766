package graph

import (
	"path/filepath"
	"strings"
)

// UnitKind indicates the flavor of source a unit was discovered as
type UnitKind string

const (
	// KindStub is an interface-declaration file carrying signatures and docstrings only
	KindStub UnitKind = "stub"
	// KindDocument is a prose document carrying fenced code blocks
	KindDocument UnitKind = "document"
)

// EntityKind indicates the kind of declaration an entity was extracted from
type EntityKind string

const (
	KindFunction EntityKind = "function"
	KindMethod   EntityKind = "method"
	KindClass    EntityKind = "class"
	KindModule   EntityKind = "module"
	KindBlock    EntityKind = "block"
)

// SourceUnit represents one stub file or prose document under test.
// It is immutable for the duration of a run.
type SourceUnit struct {
	Path     string     // Absolute or run-relative file path
	Kind     UnitKind   // stub | document
	Source   []byte     // Raw content at discovery time
	Identity uint64     // Content hash, used for idempotence checks
	LoadErr  error      // Set when the unit could not be read at discovery time
	Entities []*Entity  // Documented entities in order of appearance
}

// NewSourceUnit creates a source unit and derives its content identity
func NewSourceUnit(path string, kind UnitKind, source []byte) *SourceUnit {
	identity, _ := Hash(source)
	return &SourceUnit{
		Path:     path,
		Kind:     kind,
		Source:   source,
		Identity: identity,
	}
}

// Stem returns the unit's file name without directory or extension
func (u *SourceUnit) Stem() string {
	base := filepath.Base(u.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Lines splits the unit source into lines without trailing newlines
func (u *SourceUnit) Lines() []string {
	return SplitLines(string(u.Source))
}

// AddEntity appends an entity preserving appearance order
func (u *SourceUnit) AddEntity(entity *Entity) {
	u.Entities = append(u.Entities, entity)
}

// Eligible returns the entities that carry at least one example
func (u *SourceUnit) Eligible() []*Entity {
	var eligible []*Entity
	for _, entity := range u.Entities {
		if len(entity.Examples) > 0 {
			eligible = append(eligible, entity)
		}
	}
	return eligible
}

// Entity is a named declaration together with its adjacent documentation text.
// For documents the entity is a pseudo-declaration derived from a fenced block.
type Entity struct {
	Name       string     // Declared name, or derived block name for documents
	Qualifier  []string   // Enclosing class path (stubs) or heading path (documents)
	Kind       EntityKind // function | method | class | module | block
	Line       int        // Declaration line (1-based); fence opener line for blocks
	Doc        string     // Raw documentation text including string delimiters
	DocLine    int        // Line of the documentation opener / first block content line
	DocEndLine int        // Last line of the documentation text
	DocCol     int        // Byte column of the documentation opener on DocLine
	Examples   []*Example // Extracted interactive examples, in order
}

// QualifiedName joins the qualifier path and name with a dot
func (e *Entity) QualifiedName() string {
	if len(e.Qualifier) == 0 {
		return e.Name
	}
	return strings.Join(e.Qualifier, ".") + "." + e.Name
}

// Example is one interactive-example sequence extracted from documentation
type Example struct {
	Line   int    // Unit-absolute line of the first prompt
	Source string // Prompt and continuation text, prompts stripped
	Want   string // Expected output; empty means no output expected
}

// Artifact is a generated, independently executable module standing in
// for one source unit during test execution. Blank-line padding keeps it
// position-exact: artifact line N reproduces original line N.
type Artifact struct {
	Path  string      // Target path inside the run workspace
	Unit  *SourceUnit // Originating unit
	Names []string    // Emitted declaration names, in order
}

// SplitLines splits text into lines, tolerating both \n and \r\n endings
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
