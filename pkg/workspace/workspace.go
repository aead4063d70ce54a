// Package workspace scopes all file access to a single project root.
// Every path the engine touches resolves inside the root or the operation is
// refused.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"assistant/pkg/logx"
)

// FileStore is the file-system contract the engine consumes.
type FileStore interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	CreateDirectory(path string) error
	Exists(path string) bool
	Resolve(path string) (string, error)
	Root() string
}

// Workspace is a FileStore rooted at one project directory.
type Workspace struct {
	root   string
	logger *logx.Logger
}

var _ FileStore = (*Workspace)(nil)

// New creates a workspace at root. The directory must exist.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{
		root:   abs,
		logger: logx.NewLogger("workspace"),
	}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a workspace-relative (or absolute-style) path to an absolute
// path inside the root. Paths escaping the root are refused.
func (w *Workspace) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	// Leading slashes are treated as workspace-relative; generated paths
	// often arrive absolute-style.
	rel := strings.TrimPrefix(filepath.ToSlash(path), "/")
	abs := filepath.Join(w.root, filepath.FromSlash(rel))

	relCheck, err := filepath.Rel(w.root, abs)
	if err != nil || relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes workspace root", path)
	}
	return abs, nil
}

// Exists reports whether the path refers to an existing file or directory.
func (w *Workspace) Exists(path string) bool {
	abs, err := w.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

func (w *Workspace) ReadFile(path string) ([]byte, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes data, creating parent directories as needed.
func (w *Workspace) WriteFile(path string, data []byte) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Debug("wrote %s (%d bytes)", path, len(data))
	return nil
}

func (w *Workspace) CreateDirectory(path string) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
