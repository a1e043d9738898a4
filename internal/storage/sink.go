package storage

import "context"

// Sink durably stores a named blob. A nil error means the blob is readable
// at path.
type Sink interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// Store is a Sink that can also read objects back and report reachability.
// Client and Dir implement it.
type Store interface {
	Sink
	Get(ctx context.Context, path string) ([]byte, error)
	Healthy(ctx context.Context) bool
}

type checksumKey struct{}

// WithChecksum attaches a content checksum to ctx. Sinks that support object
// metadata store it alongside the blob.
func WithChecksum(ctx context.Context, sum string) context.Context {
	return context.WithValue(ctx, checksumKey{}, sum)
}

func checksumFrom(ctx context.Context) string {
	sum, _ := ctx.Value(checksumKey{}).(string)
	return sum
}
