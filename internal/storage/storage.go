package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// PutOptions carries the content type and user metadata of an upload.
// Exports tag each object with the month it covers and its row count.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore holds monthly exports and the snapshot the embedded query
// backend reads.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

func PutBytes(ctx context.Context, store ObjectStore, key string, payload []byte, opts PutOptions) (ObjectInfo, error) {
	if store == nil {
		return ObjectInfo{}, fmt.Errorf("object store is required")
	}
	return store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), opts)
}
