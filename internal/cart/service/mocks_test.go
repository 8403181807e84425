package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/beastsupply/storefront/internal/cart/cache"
	"github.com/beastsupply/storefront/internal/cart/repository"
	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/domain"
)

// memRepository keeps lines in memory with the same per-pair merge rule as
// the Mongo repository.
type memRepository struct {
	mu     sync.Mutex
	lines  map[string]domain.CartLine
	nextID int
	err    error
	calls  map[string]int
	// afterList runs once ListLines has read, outside the lock.
	afterList func()
}

func newMemRepository() *memRepository {
	return &memRepository{lines: map[string]domain.CartLine{}, calls: map[string]int{}}
}

func (m *memRepository) AddQuantity(_ context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["AddQuantity"]++
	if m.err != nil {
		return domain.CartLine{}, m.err
	}
	now := time.Now().UTC()
	for id, l := range m.lines {
		if l.OwnerID == ownerID && l.ProductID == productID {
			l.Quantity += quantity
			l.Revision++
			l.UpdatedAt = now
			m.lines[id] = l
			return l, nil
		}
	}
	m.nextID++
	l := domain.CartLine{
		ID:        strconv.Itoa(m.nextID),
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
		Revision:  1,
		AddedAt:   now,
		UpdatedAt: now,
	}
	m.lines[l.ID] = l
	return l, nil
}

func (m *memRepository) SetQuantity(_ context.Context, ownerID, lineID string, quantity int) (domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["SetQuantity"]++
	if m.err != nil {
		return domain.CartLine{}, m.err
	}
	l, ok := m.lines[lineID]
	if !ok || l.OwnerID != ownerID {
		return domain.CartLine{}, repository.ErrLineNotFound
	}
	l.Quantity = quantity
	l.Revision++
	l.UpdatedAt = time.Now().UTC()
	m.lines[lineID] = l
	return l, nil
}

func (m *memRepository) RemoveLine(_ context.Context, ownerID, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["RemoveLine"]++
	if m.err != nil {
		return m.err
	}
	l, ok := m.lines[lineID]
	if !ok || l.OwnerID != ownerID {
		return repository.ErrLineNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *memRepository) ListLines(_ context.Context, ownerID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	m.calls["ListLines"]++
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	out := []domain.CartLine{}
	for i := 1; i <= m.nextID; i++ {
		if l, ok := m.lines[strconv.Itoa(i)]; ok && l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	hook := m.afterList
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memRepository) DeleteLines(_ context.Context, ownerID string) (int64, error) {
	return m.deleteWhere(func(l domain.CartLine) bool { return l.OwnerID == ownerID })
}

func (m *memRepository) DeleteLineRevisions(_ context.Context, ownerID string, refs []domain.LineRef) (int64, error) {
	return m.deleteWhere(func(l domain.CartLine) bool {
		if l.OwnerID != ownerID {
			return false
		}
		for _, ref := range refs {
			if ref == l.Ref() {
				return true
			}
		}
		return false
	})
}

func (m *memRepository) deleteWhere(match func(domain.CartLine) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Delete"]++
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, l := range m.lines {
		if match(l) {
			delete(m.lines, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepository) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

type mockCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.CartLine
	generations map[string]int64
	getErr      error
	deletes     int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]domain.CartLine{}, generations: map[string]int64{}}
}

func (m *mockCache) Get(_ context.Context, ownerID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	lines, ok := m.entries[ownerID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (m *mockCache) Generation(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[ownerID], nil
}

func (m *mockCache) Set(_ context.Context, ownerID string, lines []domain.CartLine, generation int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[ownerID] != generation {
		return cache.ErrStaleGeneration
	}
	m.entries[ownerID] = lines
	return nil
}

func (m *mockCache) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, ownerID)
	m.generations[ownerID]++
	m.deletes++
	return nil
}

func (m *mockCache) has(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[ownerID]
	return ok
}

type stubCatalog struct {
	products map[int64]domain.Product
	err      error
}

func (s *stubCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (s *stubCatalog) GetMany(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
