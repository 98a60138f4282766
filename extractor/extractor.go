// Package extractor dispatches source units to the inspector that understands
// their kind and collects documented entities with their examples.
package extractor

import (
	"fmt"

	"github.com/stubdoc/stubdoc/extractor/document"
	"github.com/stubdoc/stubdoc/extractor/fence"
	"github.com/stubdoc/stubdoc/extractor/graph"
	"github.com/stubdoc/stubdoc/extractor/stub"
)

// Inspector extracts documented entities into a source unit
type Inspector interface {
	// Inspect populates the unit with its documented entities
	Inspect(unit *graph.SourceUnit) error
}

// Factory creates appropriate inspectors based on unit kind
type Factory struct {
	filter *fence.Filter
}

// NewFactory creates an inspector factory filtering examples to the given
// executable language tags; with none it uses the defaults
func NewFactory(tags ...string) *Factory {
	return &Factory{filter: fence.NewFilter(tags...)}
}

// GetInspector returns an appropriate inspector for a unit kind
func (f *Factory) GetInspector(kind graph.UnitKind) (Inspector, error) {
	switch kind {
	case graph.KindStub:
		return stub.NewInspector(f.filter), nil
	case graph.KindDocument:
		return document.NewInspector(f.filter), nil
	default:
		return nil, fmt.Errorf("unsupported unit kind: %s", kind)
	}
}

// Inspect is a convenience method that gets the appropriate inspector and
// populates the unit
func (f *Factory) Inspect(unit *graph.SourceUnit) error {
	inspector, err := f.GetInspector(unit.Kind)
	if err != nil {
		return err
	}
	return inspector.Inspect(unit)
}
