package medium

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starkell/halsa/internal/apperr"
)

// File implements Medium with one JSON document per key under a root
// directory. Writes are atomic: tmp file, fsync, rename.
type File struct {
	root string // absolute path to the data directory
}

// NewFile creates a File medium rooted at the given directory.
// The directory must already exist.
func NewFile(root string) (*File, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("medium: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("medium: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("medium: root is not a directory: %s", abs)
	}
	return &File{root: abs}, nil
}

// Path returns the absolute path of the document backing key. The record
// watcher uses it to observe external modifications.
func (f *File) Path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("medium: empty key")
	}
	if strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return "", fmt.Errorf("medium: invalid key: %q", key)
	}
	return filepath.Join(f.root, key+".json"), nil
}

// Get reads the document for key. A missing file is not an error.
func (f *File) Get(key string) (string, bool, error) {
	p, err := f.Path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("medium: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set atomically replaces the document for key: tmp file, fsync, rename.
func (f *File) Set(key, value string) error {
	p, err := f.Path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".halsa-tmp-*")
	if err != nil {
		return wrapWriteErr("create temp", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		return wrapWriteErr("write temp", err)
	}
	if err := tmp.Sync(); err != nil {
		return wrapWriteErr("fsync", err)
	}
	if err := tmp.Close(); err != nil {
		return wrapWriteErr("close temp", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return wrapWriteErr("rename", err)
	}
	success = true
	return nil
}

// Close is a no-op for the file medium.
func (f *File) Close() error { return nil }

// wrapWriteErr maps an exhausted medium onto the StorageFull sentinel so the
// caller can distinguish "disk full" from other I/O failures.
func wrapWriteErr(op string, err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("medium: %s: %w: %v", op, apperr.ErrStorageFull, err)
	}
	return fmt.Errorf("medium: %s: %w", op, err)
}
