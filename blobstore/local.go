package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local implements Bucket on a local filesystem directory.
//
// Puts are atomic: data is written to a temp file, fsynced, then renamed
// into place. Blob names may contain "/" and map to subdirectories.
type Local struct {
	root string
}

// NewLocal creates a Local bucket rooted at the given directory.
// The directory must already exist.
func NewLocal(root string) (*Local, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blobstore: not a directory: %s", root)
	}
	return &Local{root: root}, nil
}

// Root returns the root directory of the bucket.
func (l *Local) Root() string { return l.root }

// Open opens a blob for reading.
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.root, filepath.FromSlash(name)))
}

// Put writes a blob atomically via temp file + rename.
func (l *Local) Put(_ context.Context, name string, data []byte) error {
	path := filepath.Join(l.root, filepath.FromSlash(name))
	if dir := filepath.Dir(path); dir != l.root {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return l.syncDir(filepath.Dir(path))
}

// Delete removes a blob. Missing blobs are ignored.
func (l *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all blob names with the given prefix, sorted.
func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (l *Local) syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
