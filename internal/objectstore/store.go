package objectstore

import "context"

// Store is the object storage port every task reads from and writes to.
// Production uses the directory-backed implementation; tests use the
// in-memory one. A cloud-backed store slots in behind the same interface.
type Store interface {
	// Exists reports whether bucket/key holds an object.
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// List returns the keys under prefix in bucket, sorted.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Get returns the object's content.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put writes the object's content, overwriting any existing object.
	Put(ctx context.Context, bucket, key string, data []byte) error
}
