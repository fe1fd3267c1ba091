package storage

import (
	"context"
	"io"
)

// PutOptions describes a single object upload.
type PutOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service writes objects to remote object storage.
type Service interface {
	PutObject(ctx context.Context, body io.Reader, opts PutOptions) (string, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
}
