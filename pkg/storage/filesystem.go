package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStorage persists files on disk. Containers map to first-level
// directories under the base dir and keys to slash separated paths below them.
type LocalStorage struct {
	baseDir string
}

var _ FileStore = (*LocalStorage)(nil)

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// List returns the files of container whose key starts with prefix, sorted by key.
func (s *LocalStorage) List(ctx context.Context, container, prefix string) ([]Object, error) {
	root := filepath.Join(s.baseDir, container)
	objects := make([]Object, 0)
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", container, prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(_ context.Context, container, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.resolve(container, key))
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", container, key, err)
	}
	return file, nil
}

// Put copies from reader into the target file.
func (s *LocalStorage) Put(_ context.Context, container, key string, r io.Reader) error {
	target := s.resolve(container, key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare %s/%s: %w", container, path.Dir(key), err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", container, key, err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("write %s/%s: %w", container, key, err)
	}
	return file.Sync()
}

// Copy duplicates a file, possibly across containers.
func (s *LocalStorage) Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error {
	src, err := s.Open(ctx, srcContainer, srcKey)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck
	return s.Put(ctx, dstContainer, dstKey, src)
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(_ context.Context, container, key string) error {
	if err := os.Remove(s.resolve(container, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s/%s: %w", container, key, err)
	}
	return nil
}

// Path exposes the underlying path (useful for debugging).
func (s *LocalStorage) Path(container, key string) string {
	return s.resolve(container, key)
}

func (s *LocalStorage) resolve(container, key string) string {
	return filepath.Join(s.baseDir, container, filepath.FromSlash(path.Clean("/"+key)))
}
