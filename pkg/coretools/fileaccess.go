package coretools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/spf13/afero"
)

// DirEntry is one top-level entry of a directory listing
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// FileAccess is the I/O surface tool handlers work through.
// Errors wrap toolexecutor.ErrNotFound, ErrIO or ErrForbiddenPath.
type FileAccess interface {
	// Resolve maps a user-supplied path to the absolute path that will be touched.
	Resolve(path string) (string, error)
	ReadText(ctx context.Context, path string) (string, error)
	ListDirectory(ctx context.Context, path string) ([]DirEntry, error)
	WriteText(ctx context.Context, path, content string) error
	MakeDir(ctx context.Context, path string) error
}

// FSAccess implements FileAccess over an afero filesystem confined to Root.
// With an empty Root only absolute paths are accepted.
type FSAccess struct {
	fs   afero.Fs
	root string
}

// NewFSAccess creates a confined file access layer. A nil fs uses the OS filesystem.
func NewFSAccess(fsys afero.Fs, root string) *FSAccess {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	root = strings.TrimSpace(root)
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		root = filepath.Clean(root)
	}
	return &FSAccess{fs: fsys, root: root}
}

// Root returns the project root, or "" when none is configured
func (a *FSAccess) Root() string {
	return a.root
}

// Resolve implements FileAccess
func (a *FSAccess) Resolve(path string) (string, error) {
	raw := strings.TrimSpace(path)
	if raw == "" {
		return "", fmt.Errorf("%w: (empty)", toolexecutor.ErrForbiddenPath)
	}
	if strings.Contains(raw, "://") {
		return "", fmt.Errorf("%w: %s (not a local path)", toolexecutor.ErrForbiddenPath, raw)
	}

	if a.root == "" {
		if filepath.IsAbs(raw) {
			return filepath.Clean(raw), nil
		}
		return "", fmt.Errorf("%w: %s (no project folder selected)", toolexecutor.ErrForbiddenPath, raw)
	}

	candidate := raw
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(a.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(a.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s (outside project scope)", toolexecutor.ErrForbiddenPath, raw)
	}
	return candidate, nil
}

// ReadText implements FileAccess
func (a *FSAccess) ReadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", classify(path, err)
	}
	return string(data), nil
}

// ListDirectory implements FileAccess. Entries are sorted by name.
func (a *FSAccess) ListDirectory(ctx context.Context, path string) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(a.fs, path)
	if err != nil {
		return nil, classify(path, err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, DirEntry{Name: info.Name(), IsDir: info.IsDir()})
	}
	return entries, nil
}

// WriteText implements FileAccess. Missing parent directories are created.
func (a *FSAccess) WriteText(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return classify(path, err)
	}
	if err := afero.WriteFile(a.fs, path, []byte(content), 0o644); err != nil {
		return classify(path, err)
	}
	return nil
}

// MakeDir implements FileAccess
func (a *FSAccess) MakeDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.fs.MkdirAll(path, 0o755); err != nil {
		return classify(path, err)
	}
	return nil
}

func classify(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", toolexecutor.ErrNotFound, path)
	}
	return fmt.Errorf("%w: %s: %v", toolexecutor.ErrIO, path, err)
}
