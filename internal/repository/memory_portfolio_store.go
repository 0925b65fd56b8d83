package repository

import (
	"context"
	"sync"

	drepo "SignalDesk/internal/domain/repository"
)

// MemoryPortfolio seeds one in-memory portfolio.
type MemoryPortfolio struct {
	ID        string
	Cash      float64
	Holdings  map[string]int
	Gateway   bool
	Recipient string
}

// MemoryPortfolioStore implements PortfolioStore with in-process state.
type MemoryPortfolioStore struct {
	mu         sync.RWMutex
	portfolios map[string]*MemoryPortfolio
}

// NewMemoryPortfolioStore creates a store seeded with the given portfolios.
func NewMemoryPortfolioStore(seeds ...MemoryPortfolio) *MemoryPortfolioStore {
	s := &MemoryPortfolioStore{portfolios: make(map[string]*MemoryPortfolio)}
	for _, seed := range seeds {
		p := seed
		if p.Holdings == nil {
			p.Holdings = make(map[string]int)
		}
		s.portfolios[p.ID] = &p
	}
	return s
}

func (s *MemoryPortfolioStore) get(id string) (*MemoryPortfolio, error) {
	p, ok := s.portfolios[id]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	return p, nil
}

func (s *MemoryPortfolioStore) RawCash(_ context.Context, portfolioID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return 0, err
	}
	return p.Cash, nil
}

func (s *MemoryPortfolioStore) AdjustCash(_ context.Context, portfolioID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return err
	}
	p.Cash += delta
	return nil
}

func (s *MemoryPortfolioStore) Holdings(_ context.Context, portfolioID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(p.Holdings))
	for k, v := range p.Holdings {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryPortfolioStore) AdjustHolding(_ context.Context, portfolioID, symbol string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return err
	}
	p.Holdings[symbol] += delta
	if p.Holdings[symbol] <= 0 {
		delete(p.Holdings, symbol)
	}
	return nil
}

func (s *MemoryPortfolioStore) HasGateway(_ context.Context, portfolioID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return false, err
	}
	return p.Gateway, nil
}

func (s *MemoryPortfolioStore) Recipient(_ context.Context, portfolioID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(portfolioID)
	if err != nil {
		return "", err
	}
	return p.Recipient, nil
}
