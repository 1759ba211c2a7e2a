package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/storage"
)

type sampleKey struct {
	mint        string
	timestampMs int64
}

// PnLSampleStore is an in-memory implementation of storage.PnLSampleStore.
type PnLSampleStore struct {
	mu   sync.RWMutex
	data map[sampleKey]*storage.PnLSample
}

// NewPnLSampleStore creates a new in-memory PnL sample store.
func NewPnLSampleStore() *PnLSampleStore {
	return &PnLSampleStore{
		data: make(map[sampleKey]*storage.PnLSample),
	}
}

// InsertBulk adds multiple samples atomically. Fails the entire batch on
// a duplicate (mint, timestamp_ms).
func (s *PnLSampleStore) InsertBulk(_ context.Context, samples []*storage.PnLSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[sampleKey]struct{}, len(samples))
	for _, p := range samples {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}

		k := sampleKey{p.Mint, p.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range samples {
		copy := *p
		s.data[sampleKey{p.Mint, p.TimestampMs}] = &copy
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PnLSampleStore) GetByMint(_ context.Context, mint string) ([]*storage.PnLSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.PnLSample
	for _, p := range s.data {
		if p.Mint == mint {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.PnLSampleStore = (*PnLSampleStore)(nil)
