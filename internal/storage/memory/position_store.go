package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*storage.ClosedPosition // keyed by buy signature
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*storage.ClosedPosition),
	}
}

// Insert adds a closed position. Returns ErrDuplicateKey if the buy
// signature was already recorded.
func (s *PositionStore) Insert(_ context.Context, p *storage.ClosedPosition) error {
	if p == nil || p.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.Signature] = &copy
	return nil
}

// GetBySignature retrieves a position by its buy signature. Returns
// ErrNotFound if not exists.
func (s *PositionStore) GetBySignature(_ context.Context, signature string) (*storage.ClosedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetByMint retrieves all closed positions for a mint, ordered by close time ASC.
func (s *PositionStore) GetByMint(_ context.Context, mint string) ([]*storage.ClosedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.ClosedPosition
	for _, p := range s.data {
		if p.Mint == mint {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortByCloseTime(result)
	return result, nil
}

// GetAll retrieves all closed positions, ordered by close time ASC.
func (s *PositionStore) GetAll(_ context.Context) ([]*storage.ClosedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.ClosedPosition, 0, len(s.data))
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}

	sortByCloseTime(result)
	return result, nil
}

func sortByCloseTime(positions []*storage.ClosedPosition) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].ClosedAt.Equal(positions[j].ClosedAt) {
			return positions[i].Signature < positions[j].Signature
		}
		return positions[i].ClosedAt.Before(positions[j].ClosedAt)
	})
}

var _ storage.PositionStore = (*PositionStore)(nil)
