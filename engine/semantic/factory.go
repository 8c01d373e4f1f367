package semantic

import (
	"context"
	"fmt"
)

// Backend is the store surface the pipeline consumes. Both the Qdrant
// store and MemoryStore satisfy it.
type Backend interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (uint64, error)
	Reset(ctx context.Context) error
	Close() error
}

// Open returns the configured vector store backend. An empty name means
// qdrant.
func Open(backend, addr, collection string) (Backend, error) {
	switch backend {
	case "", "qdrant":
		return New(addr, collection)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("semantic: unknown backend %q", backend)
	}
}
