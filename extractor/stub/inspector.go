// Package stub extracts documented entities from Python interface-declaration
// files. Bodies are never required or inspected: signatures and docstrings
// are all a stub carries.
package stub

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/stubdoc/stubdoc/extractor/example"
	"github.com/stubdoc/stubdoc/extractor/fence"
	"github.com/stubdoc/stubdoc/extractor/graph"
)

// Inspector provides functionality to inspect stub files and extract
// documented entities together with their interactive examples
type Inspector struct {
	filter *fence.Filter
	source []byte
}

// NewInspector creates a new stub Inspector with the provided tag filter
func NewInspector(filter *fence.Filter) *Inspector {
	if filter == nil {
		filter = fence.NewFilter()
	}
	return &Inspector{filter: filter}
}

// InspectFile parses a stub file and returns its source unit with entities
func (i *Inspector) InspectFile(filename string) (*graph.SourceUnit, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	unit := graph.NewSourceUnit(filename, graph.KindStub, src)
	if err := i.Inspect(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// InspectSource parses stub source from a byte slice and extracts entities
func (i *Inspector) InspectSource(src []byte) (*graph.SourceUnit, error) {
	unit := graph.NewSourceUnit("source.pyi", graph.KindStub, src)
	if err := i.Inspect(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Inspect populates the unit with its documented entities, ordered by
// appearance. Parse errors never abort extraction: error nodes in the tree
// simply reduce the extracted set, since malformed documentation must still
// surface as visibly as possible.
func (i *Inspector) Inspect(unit *graph.SourceUnit) error {
	i.source = unit.Source

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, unit.Source)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", unit.Path, err)
	}
	rootNode := tree.RootNode()

	if entity := i.moduleEntity(rootNode, unit); entity != nil {
		unit.AddEntity(entity)
	}
	i.collectDefinitions(rootNode, unit, nil)
	return nil
}

// moduleEntity turns a module docstring into a file-stem pseudo-entity when
// it carries at least one prompt
func (i *Inspector) moduleEntity(rootNode *sitter.Node, unit *graph.SourceUnit) *graph.Entity {
	docNode := docstringNode(rootNode)
	if docNode == nil || !strings.Contains(docNode.Content(i.source), ">>>") {
		return nil
	}
	entity := &graph.Entity{
		Name: unit.Stem(),
		Kind: graph.KindModule,
		Line: int(docNode.StartPoint().Row) + 1,
	}
	i.attachDoc(entity, docNode)
	return entity
}

// collectDefinitions walks function and class declarations, recursing into
// class bodies so methods and nested classes record their class membership
func (i *Inspector) collectDefinitions(node *sitter.Node, unit *graph.SourceUnit, qualifier []string) {
	for j := 0; j < int(node.NamedChildCount()); j++ {
		childNode := node.NamedChild(j)
		definition := childNode
		if childNode.Type() == "decorated_definition" {
			definition = childNode.ChildByFieldName("definition")
			if definition == nil {
				continue
			}
		}
		switch definition.Type() {
		case "function_definition":
			if entity := i.definitionEntity(definition, qualifier, functionKind(qualifier)); entity != nil {
				unit.AddEntity(entity)
			}
		case "class_definition":
			entity := i.definitionEntity(definition, qualifier, graph.KindClass)
			if entity != nil {
				unit.AddEntity(entity)
			}
			if bodyNode := definition.ChildByFieldName("body"); bodyNode != nil {
				nameNode := definition.ChildByFieldName("name")
				if nameNode != nil {
					nested := append(append([]string(nil), qualifier...), nameNode.Content(i.source))
					i.collectDefinitions(bodyNode, unit, nested)
				}
			}
		}
	}
}

// definitionEntity builds an entity for one declaration. Generic parameter
// lists and default-valued parameters belong to the grammar and are skipped
// as syntax; values are never evaluated.
func (i *Inspector) definitionEntity(definition *sitter.Node, qualifier []string, kind graph.EntityKind) *graph.Entity {
	nameNode := definition.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	entity := &graph.Entity{
		Name:      nameNode.Content(i.source),
		Qualifier: append([]string(nil), qualifier...),
		Kind:      kind,
		Line:      int(definition.StartPoint().Row) + 1,
	}
	if bodyNode := definition.ChildByFieldName("body"); bodyNode != nil {
		if docNode := docstringNode(bodyNode); docNode != nil {
			i.attachDoc(entity, docNode)
		}
	}
	return entity
}

// attachDoc records the docstring's exact position and extracts its examples
func (i *Inspector) attachDoc(entity *graph.Entity, docNode *sitter.Node) {
	entity.Doc = docNode.Content(i.source)
	entity.DocLine = int(docNode.StartPoint().Row) + 1
	entity.DocEndLine = int(docNode.EndPoint().Row) + 1
	entity.DocCol = int(docNode.StartPoint().Column)

	content := stringContent(entity.Doc)
	regions := fence.ScanDoc(content, i.filter)
	entity.Examples = example.NormalizeAll(regions, entity.DocLine)
}

// docstringNode returns the string node of a block's leading docstring, or
// nil when the first statement is not a string expression
func docstringNode(bodyNode *sitter.Node) *sitter.Node {
	if bodyNode.NamedChildCount() == 0 {
		return nil
	}
	first := bodyNode.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return nil
	}
	stringNode := first.NamedChild(0)
	if stringNode.Type() != "string" {
		return nil
	}
	return stringNode
}

// stringContent strips the prefix letters and quote delimiters from a Python
// string literal, leaving the documentation text with its line layout intact
func stringContent(literal string) string {
	start := 0
	for start < len(literal) && isPrefixLetter(literal[start]) {
		start++
	}
	if start >= len(literal) || (literal[start] != '"' && literal[start] != '\'') {
		return literal
	}
	quote := literal[start]
	quoteRun := 1
	if strings.HasPrefix(literal[start:], strings.Repeat(string(quote), 3)) {
		quoteRun = 3
	}
	content := literal[start+quoteRun:]
	suffix := strings.Repeat(string(quote), quoteRun)
	return strings.TrimSuffix(content, suffix)
}

func isPrefixLetter(c byte) bool {
	switch c {
	case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
		return true
	}
	return false
}

func functionKind(qualifier []string) graph.EntityKind {
	if len(qualifier) > 0 {
		return graph.KindMethod
	}
	return graph.KindFunction
}
