package model

import (
	"context"
	"errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobRepository is a flat key-value store holding whole serialized documents.
type BlobRepository interface {
	FetchBlob(ctx context.Context, key string) ([]byte, error)
	SaveBlob(ctx context.Context, key string, data []byte) error
}
