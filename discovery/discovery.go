// Package discovery locates stub-file and document source units for a run.
package discovery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"

	"github.com/stubdoc/stubdoc/extractor/graph"
)

// Discoverer yields the ordered, finite set of source units under a root
type Discoverer struct {
	fs afs.Service
	// Common project root marker files/directories
	markers []string
}

// New creates a new discoverer
func New() *Discoverer {
	return &Discoverer{
		fs: afs.New(),
		markers: []string{
			"pyproject.toml",   // Python projects
			"setup.py",         // Python projects (legacy layout)
			"setup.cfg",        // Python projects (legacy layout)
			"requirements.txt", // Python projects
			".git",             // Generic VCS marker
		},
	}
}

// KindForPath infers the unit kind from a file extension
func KindForPath(path string) (graph.UnitKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pyi":
		return graph.KindStub, true
	case ".md", ".markdown":
		return graph.KindDocument, true
	}
	return "", false
}

// Discover walks the package directory under root and returns its units
// ordered by path. A unit that cannot be read is returned with its load
// error set: fatal for that unit only, never for the batch.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]*graph.SourceUnit, error) {
	object, err := d.fs.Object(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("root directory %s: %w", root, err)
	}
	if !object.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory; use DiscoverFile for single files", root)
	}

	paths, err := d.collectUnitPaths(ctx, root)
	if err != nil {
		return nil, err
	}
	paths = packageScope(root, paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no stub files or documents found in %s", root)
	}

	var units []*graph.SourceUnit
	for _, path := range paths {
		units = append(units, d.load(ctx, path))
	}
	return units, nil
}

// DiscoverFile yields the single unit for a file path, kind inferred from
// its extension
func (d *Discoverer) DiscoverFile(ctx context.Context, path string) (*graph.SourceUnit, error) {
	object, err := d.fs.Object(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	if object.IsDir() {
		return nil, fmt.Errorf("%s is a directory; use Discover for directories", path)
	}
	if _, ok := KindForPath(path); !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	return d.load(ctx, path), nil
}

// ProjectRoot searches up the directory tree for a project marker, in the
// manner of repository detectors; it falls back to the start directory
func (d *Discoverer) ProjectRoot(ctx context.Context, start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		for _, marker := range d.markers {
			if ok, _ := d.fs.Exists(ctx, filepath.Join(dir, marker)); ok {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// collectUnitPaths walks the tree once through the file service and returns
// every unit path, ordered
func (d *Discoverer) collectUnitPaths(ctx context.Context, root string) ([]string, error) {
	var paths []string
	visitor := func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		if _, ok := KindForPath(info.Name()); ok {
			paths = append(paths, filepath.Join(root, parent, info.Name()))
		}
		return true, nil
	}
	if err := d.fs.Walk(ctx, root, visitor); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// load reads a unit's content; a read failure is recorded on the unit
func (d *Discoverer) load(ctx context.Context, path string) *graph.SourceUnit {
	kind, _ := KindForPath(path)
	data, err := d.fs.DownloadWithURL(ctx, path)
	if err != nil {
		unit := graph.NewSourceUnit(path, kind, nil)
		unit.LoadErr = fmt.Errorf("failed to read %s: %w", path, err)
		return unit
	}
	return graph.NewSourceUnit(path, kind, data)
}

// packageScope narrows the discovered paths to one package directory: root
// itself when any unit lives directly under it, otherwise the first child
// directory holding units. No units anywhere leaves the slice empty for the
// caller to report.
func packageScope(root string, paths []string) []string {
	separator := string(filepath.Separator)
	child := ""
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if !strings.Contains(rel, separator) {
			return paths
		}
		segment := strings.SplitN(rel, separator, 2)[0]
		if child == "" || segment < child {
			child = segment
		}
	}
	if child == "" {
		return nil
	}
	prefix := filepath.Join(root, child) + separator
	var scoped []string
	for _, path := range paths {
		if strings.HasPrefix(path, prefix) {
			scoped = append(scoped, path)
		}
	}
	return scoped
}
