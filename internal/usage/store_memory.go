package usage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.Mutex
	data Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: Snapshot{Estimated: true}}
}

func (s *memoryStore) Get(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, nil
}

func (s *memoryStore) Add(ctx context.Context, in, out, img int, cost float64) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.InputTokens += in + img
	s.data.OutputTokens += out
	s.data.ImageTokens += img
	s.data.TotalCost += cost
	s.data.RequestCount++
	return s.data, nil
}

func (s *memoryStore) Reset(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Snapshot{Estimated: true}
	return s.data, nil
}
