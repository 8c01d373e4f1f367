package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Backend with brute-force cosine search.
// Used for development runs and tests; semantics match the Qdrant store.
type MemoryStore struct {
	mu   sync.RWMutex
	dims int
	recs map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

// EnsureCollection records the expected vector dimensionality.
func (m *MemoryStore) EnsureCollection(_ context.Context, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == 0 {
		m.dims = dims
	}
	return nil
}

// Upsert stores records keyed by logical id; rewriting an id replaces it.
func (m *MemoryStore) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.dims == 0 {
			m.dims = len(r.Vector)
		}
		if len(r.Vector) != m.dims {
			return fmt.Errorf("semantic: record %s has %d dims, want %d", r.ID, len(r.Vector), m.dims)
		}
		m.recs[r.ID] = r
	}
	return nil
}

// Query returns up to topK hits by descending cosine similarity. Ties
// break on ordinal so results are deterministic.
func (m *MemoryStore) Query(_ context.Context, vector []float32, topK int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims != 0 && len(vector) != m.dims {
		return nil, fmt.Errorf("semantic: query vector has %d dims, want %d", len(vector), m.dims)
	}

	hits := make([]Hit, 0, len(m.recs))
	for _, r := range m.recs {
		hits = append(hits, Hit{
			ID:      r.ID,
			Score:   cosine(vector, r.Vector),
			Text:    r.Text,
			Ordinal: r.Ordinal,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.recs)), nil
}

// Reset drops all records.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = make(map[string]Record)
	m.dims = 0
	return nil
}

// Close is a no-op; MemoryStore holds no external resources.
func (m *MemoryStore) Close() error { return nil }

// cosine computes the cosine similarity of two equal-length vectors.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
