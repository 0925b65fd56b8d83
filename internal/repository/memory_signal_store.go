package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
)

// MemorySignalStore implements SignalStore with an in-process map. Used in
// dev mode and by tests. Signals are copied on every read and write so
// callers never alias store state.
type MemorySignalStore struct {
	mu      sync.RWMutex
	signals map[string]*models.Signal
	now     func() time.Time
}

// NewMemorySignalStore creates an empty in-memory signal store.
func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{
		signals: make(map[string]*models.Signal),
		now:     time.Now,
	}
}

// SetClock overrides the store clock. Tests only.
func (s *MemorySignalStore) SetClock(now func() time.Time) { s.now = now }

func clone(sig *models.Signal) *models.Signal {
	cp := *sig
	if sig.LastNotifiedAt != nil {
		t := *sig.LastNotifiedAt
		cp.LastNotifiedAt = &t
	}
	return &cp
}

func (s *MemorySignalStore) Create(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sig.CreatedAt = now
	sig.UpdatedAt = now
	s.signals[sig.ID] = clone(sig)
	return nil
}

func (s *MemorySignalStore) Get(_ context.Context, id string) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	return clone(sig), nil
}

func (s *MemorySignalStore) UpdateIf(_ context.Context, id string, expect []models.Status, mutate func(*models.Signal)) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	if !statusIn(sig.Status, expect) {
		return nil, drepo.ErrConflict
	}
	cp := clone(sig)
	mutate(cp)
	cp.UpdatedAt = s.now()
	s.signals[id] = cp
	return clone(cp), nil
}

func (s *MemorySignalStore) ListByPortfolio(_ context.Context, portfolioID string) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		return sig.PortfolioID == portfolioID
	}), nil
}

func (s *MemorySignalStore) ListReserving(_ context.Context, portfolioID string) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		return sig.PortfolioID == portfolioID && sig.Status.IsReserving()
	}), nil
}

func (s *MemorySignalStore) ListDue(_ context.Context, cutoff time.Time) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		if sig.Status != models.StatusPending && sig.Status != models.StatusSnoozed {
			return false
		}
		return sig.LastNotifiedAt == nil || sig.LastNotifiedAt.Before(cutoff)
	}), nil
}

func (s *MemorySignalStore) ListStale(_ context.Context, cutoff time.Time) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		if sig.Status != models.StatusPending && sig.Status != models.StatusSnoozed {
			return false
		}
		return sig.CreatedAt.Before(cutoff)
	}), nil
}

func (s *MemorySignalStore) ListOpenOrders(_ context.Context) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		return sig.OrderID != "" && sig.OrderState == models.OrderStatePending
	}), nil
}

func (s *MemorySignalStore) CountCreatedSince(_ context.Context, portfolioID string, since time.Time) (int, error) {
	n := 0
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sig := range s.signals {
		if sig.PortfolioID == portfolioID && sig.Status != models.StatusExpired && !sig.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemorySignalStore) ListExecutedBuys(_ context.Context, cutoff time.Time) ([]*models.Signal, error) {
	return s.list(func(sig *models.Signal) bool {
		return sig.Status == models.StatusExecuted && sig.Side == models.SideBuy && sig.CreatedAt.Before(cutoff)
	}), nil
}

// list returns matching signals ordered by creation time, which gives
// scheduler passes a stable processing order.
func (s *MemorySignalStore) list(match func(*models.Signal) bool) []*models.Signal {
	s.mu.RLock()
	out := make([]*models.Signal, 0)
	for _, sig := range s.signals {
		if match(sig) {
			out = append(out, clone(sig))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func statusIn(s models.Status, set []models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// MemoryFillMarker implements FillMarker with a map.
type MemoryFillMarker struct {
	mu      sync.Mutex
	applied map[string]bool
}

func NewMemoryFillMarker() *MemoryFillMarker {
	return &MemoryFillMarker{applied: make(map[string]bool)}
}

func (m *MemoryFillMarker) Mark(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[orderID] {
		return false, nil
	}
	m.applied[orderID] = true
	return true, nil
}

// MemoryAuditTrail implements AuditTrail with an append-only slice.
type MemoryAuditTrail struct {
	mu      sync.RWMutex
	actions []*models.SignalAction
}

func NewMemoryAuditTrail() *MemoryAuditTrail {
	return &MemoryAuditTrail{}
}

func (m *MemoryAuditTrail) Append(_ context.Context, a *models.SignalAction) error {
	m.mu.Lock()
	cp := *a
	m.actions = append(m.actions, &cp)
	m.mu.Unlock()
	return nil
}

func (m *MemoryAuditTrail) ListBySignal(_ context.Context, signalID string) ([]*models.SignalAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.SignalAction, 0)
	for _, a := range m.actions {
		if a.SignalID == signalID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
