package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// tempPrefix marks in-progress writes. Like every dot file, List never
// reports them.
const tempPrefix = ".upload-"

// DiskStorage implements Storage on a local directory. Keys are plain file
// names directly under the root.
type DiskStorage struct {
	root string
}

// NewDiskStorage creates root if needed and returns a DiskStorage rooted there.
func NewDiskStorage(root string) (*DiskStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{root: abs}, nil
}

// Root is the absolute directory images are stored in.
func (s *DiskStorage) Root() string {
	return s.root
}

// Upload writes reader to a temp file and renames it over key, so readers see
// either the previous file or the complete new one.
func (s *DiskStorage) Upload(ctx context.Context, key string, reader io.Reader, _ int64, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %q: %w", key, err)
	}
	return nil
}

// Delete removes the file stored under key.
func (s *DiskStorage) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Exists reports whether a regular file is stored under key.
func (s *DiskStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns the files in the root whose names start with prefix. Dot files
// such as .gitkeep are not images and are skipped.
func (s *DiskStorage) List(_ context.Context, prefix string) ([]Object, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	var out []Object
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", name, err)
		}
		out = append(out, Object{Key: name, Size: info.Size(), LastModified: info.ModTime()})
	}
	return out, nil
}

// Reference is the bare file name; the server exposes it under /uploads/.
func (s *DiskStorage) Reference(key string) string {
	return key
}

// KeyOf accepts only references that are plain file names.
func (s *DiskStorage) KeyOf(ref string) (string, bool) {
	if _, err := s.path(ref); err != nil {
		return "", false
	}
	return ref, true
}

func (s *DiskStorage) path(key string) (string, error) {
	if err := ValidateName(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, key), nil
}

// ValidateName checks that name can be stored as a single file directly under
// a directory: non-empty, not "." or "..", no separators and no NUL.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return nil
}
