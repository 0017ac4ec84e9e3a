package driven

import "context"

// BlobStore handles raw file storage (MinIO/S3).
// Deletes on already-absent keys must not error; the synchronizer's
// multi-step deletions are retried without coordination.
type BlobStore interface {
	// Put stores an object
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Get retrieves an object
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Delete removes an object
	Delete(ctx context.Context, bucket, key string) error

	// Exists reports whether an object is present
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// RemoveBucket removes a bucket and everything in it
	RemoveBucket(ctx context.Context, bucket string) error
}
