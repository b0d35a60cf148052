package storage

import (
	"context"
	"io"
)

// ObjectStore is the bucket ranking archives are written to.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}
