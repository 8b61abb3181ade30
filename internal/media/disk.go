package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/manga-mirror/internal/engine"
	"github.com/franz/manga-mirror/internal/util"
)

// DiskStore mirrors panel images into a directory tree under a root.
// Logical paths are slash-separated (slug/chapter-N/panel-NNN.ext) and
// map directly onto the filesystem.
type DiskStore struct {
	root string
}

var _ engine.MediaStore = (*DiskStore)(nil)

// NewDiskStore creates the root directory if needed
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: media root is empty", util.ErrInvalidConfig)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}

	return &DiskStore{root: abs}, nil
}

// Root returns the absolute media root directory
func (d *DiskStore) Root() string {
	return d.root
}

// Put writes data atomically: to a temp file first, then renamed into
// place, so a crash never leaves a half-written panel behind. The
// returned reference is the absolute file path.
func (d *DiskStore) Put(ctx context.Context, logicalPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel, err := sanitize(logicalPath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(d.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create panel directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".panel-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write panel: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close panel file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move panel into place: %w", err)
	}

	return dest, nil
}

// sanitize rejects logical paths that would escape the root
func sanitize(logicalPath string) (string, error) {
	p := strings.TrimSpace(logicalPath)
	if p == "" {
		return "", fmt.Errorf("%w: empty media path", util.ErrInvalidConfig)
	}

	clean := filepath.ToSlash(filepath.Clean("/" + p))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("%w: invalid media path %q", util.ErrInvalidConfig, logicalPath)
	}
	return clean, nil
}
