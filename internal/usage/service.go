package usage

import (
	"context"

	"interview-relay/internal/models"
	"interview-relay/internal/shared/metrics"
)

type store interface {
	Get(ctx context.Context) (Snapshot, error)
	Add(ctx context.Context, in, out, img int, cost float64) (Snapshot, error)
	Reset(ctx context.Context) (Snapshot, error)
}

// Pricer resolves per-model prices.
type Pricer interface {
	Lookup(id string) (models.Model, bool)
}

// Service is the usage accountant: it prices requests and keeps the
// process-lifetime counter.
type Service struct {
	store  store
	prices Pricer
}

// NewService constructs a Service with an in-memory counter.
func NewService(prices Pricer) *Service {
	return &Service{store: newMemoryStore(), prices: prices}
}

// Price returns the estimated dollar cost of r. Unknown models cost zero.
func (s *Service) Price(r Record) float64 {
	m, ok := s.prices.Lookup(r.Model)
	if !ok {
		return 0
	}
	return Cost(r.InputTokens, r.OutputTokens, r.ImageTokens, m.InputPrice, m.OutputPrice)
}

// Record adds r to the counter and returns its cost with the updated totals.
func (s *Service) Record(ctx context.Context, r Record) (float64, Snapshot, error) {
	cost := s.Price(r)
	snap, err := s.store.Add(ctx, r.InputTokens, r.OutputTokens, r.ImageTokens, cost)
	if err != nil {
		return 0, Snapshot{}, err
	}
	metrics.AddTokens(r.InputTokens, r.OutputTokens, r.ImageTokens)
	metrics.AddCost(cost)
	return cost, snap, nil
}

// Get returns the current totals.
func (s *Service) Get(ctx context.Context) (Snapshot, error) {
	return s.store.Get(ctx)
}

// Reset zeroes the counter.
func (s *Service) Reset(ctx context.Context) (Snapshot, error) {
	return s.store.Reset(ctx)
}
