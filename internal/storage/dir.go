package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bowerhall/graphcol/internal/logger"
)

// Dir stores objects as files under a root directory. Used for dry runs and
// for staging a dataset before copying it to a bucket.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Put writes data to root/path. The file appears atomically.
func (d *Dir) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	logger.Debug("file written", "path", target, "size", len(data))
	return nil
}

// Get reads root/path.
func (d *Dir) Get(ctx context.Context, path string) ([]byte, error) {
	target, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(target)
}

// Healthy reports whether the root is still a writable directory.
func (d *Dir) Healthy(ctx context.Context) bool {
	f, err := os.CreateTemp(d.root, ".healthz-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	return os.Remove(name) == nil
}

// Root returns the root directory
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", path)
	}
	return filepath.Join(d.root, clean), nil
}
