package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.uber.org/zap"
)

// workspaceName is the directory one run synthesizes into. Concurrent runs
// against the same parent are not safe unless given distinct parents; this
// is a documented constraint, not an enforced lock.
const workspaceName = "doctests_temp"

// Workspace is the scoped temporary area owning one run's synthesized
// artifacts. It is an explicit value, never package-level state: construct
// on entry, Close on every exit path.
type Workspace struct {
	fs     afs.Service
	root   string
	retain bool
	logger *zap.Logger
	used   map[string]int
}

// NewWorkspace creates the artifact directory under parent (the working
// directory when empty), replacing any leftover from an earlier run
func NewWorkspace(ctx context.Context, parent string, retain bool, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := filepath.Join(parent, workspaceName)
	fs := afs.New()
	if ok, _ := fs.Exists(ctx, root); ok {
		if err := fs.Delete(ctx, root); err != nil {
			return nil, fmt.Errorf("failed to clear workspace %s: %w", root, err)
		}
	}
	if err := fs.Create(ctx, root, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", root, err)
	}
	return &Workspace{
		fs:     fs,
		root:   root,
		retain: retain,
		logger: logger,
		used:   make(map[string]int),
	}, nil
}

// Root returns the workspace directory
func (w *Workspace) Root() string {
	return w.root
}

// Retained reports whether Close will keep the directory in place. Callers
// owning the run output use it to tell the user where the artifacts live.
func (w *Workspace) Retained() bool {
	return w.retain
}

// ArtifactPath reserves a unique artifact path for a unit stem. Identically
// named units from different source directories get ordinal suffixes, in
// reservation order, so their modules never collide on import.
func (w *Workspace) ArtifactPath(stem string) string {
	name := stem + "_doctest"
	w.used[name]++
	if n := w.used[name]; n > 1 {
		name = fmt.Sprintf("%s_%d", name, n-1)
	}
	return filepath.Join(w.root, name+".py")
}

// Write stores one artifact
func (w *Workspace) Write(ctx context.Context, path string, data []byte) error {
	return w.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewReader(data))
}

// Close removes the workspace unless retention was requested. A failing
// removal is logged and swallowed: it does not affect the correctness of
// reported results.
func (w *Workspace) Close(ctx context.Context) error {
	if w.retain {
		w.logger.Info("retained artifact directory", zap.String("dir", w.root))
		return nil
	}
	if err := w.fs.Delete(ctx, w.root); err != nil {
		w.logger.Warn("failed to remove artifact directory", zap.String("dir", w.root), zap.Error(err))
	}
	return nil
}
