package storage

import (
	"context"
	"io"
	"time"
)

// Object describes one stored file.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// FileStore is a container/key addressed file store such as a bucket service
// or a local directory tree.
type FileStore interface {
	List(ctx context.Context, container, prefix string) ([]Object, error)
	Open(ctx context.Context, container, key string) (io.ReadCloser, error)
	Put(ctx context.Context, container, key string, r io.Reader) error
	Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error
	Delete(ctx context.Context, container, key string) error
}
