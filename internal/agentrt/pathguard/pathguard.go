// Package pathguard resolves filesystem paths against a workspace
// root, rejecting anything that would escape it.
package pathguard

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEscapesWorkspace is returned when a path resolves outside its
// workspace root.
type ErrEscapesWorkspace struct {
	Path      string
	Workspace string
}

func (e *ErrEscapesWorkspace) Error() string {
	return fmt.Sprintf("pathguard: %q escapes workspace %q", e.Path, e.Workspace)
}

// Resolver canonicalizes relative paths against a fixed workspace
// root.
type Resolver struct {
	Root string
}

// NewResolver creates a Resolver rooted at an absolute workspace
// directory.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("pathguard: resolve workspace root: %w", err)
	}
	return &Resolver{Root: abs}, nil
}

// Resolve joins path against the workspace root and rejects the
// result if it is not a descendant of the root.
func (r *Resolver) Resolve(path string) (string, error) {
	joined := filepath.Join(r.Root, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("pathguard: resolve %q: %w", path, err)
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "", fmt.Errorf("pathguard: relativize %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ErrEscapesWorkspace{Path: path, Workspace: r.Root}
	}
	return abs, nil
}
