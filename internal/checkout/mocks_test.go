package checkout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/google/uuid"
)

type fakeCart struct {
	mu         sync.Mutex
	lines      map[string][]domain.CartLine
	clearErr   error
	failClears int // number of clears that fail before succeeding
	clearCalls int
	// afterLines runs once Lines has taken its read, outside the lock.
	afterLines func()
}

func newFakeCart() *fakeCart {
	return &fakeCart{lines: map[string][]domain.CartLine{}}
}

// add merges into an existing line for the product, bumping its revision,
// or appends a new one.
func (f *fakeCart) add(owner string, productID int64, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for i, l := range f.lines[owner] {
		if l.ProductID == productID {
			f.lines[owner][i].Quantity += qty
			f.lines[owner][i].Revision++
			f.lines[owner][i].UpdatedAt = now
			return
		}
	}
	f.lines[owner] = append(f.lines[owner], domain.CartLine{
		ID: uuid.NewString(), OwnerID: owner, ProductID: productID, Quantity: qty, Revision: 1, AddedAt: now, UpdatedAt: now,
	})
}

func (f *fakeCart) Lines(_ context.Context, ownerID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	lines := append([]domain.CartLine(nil), f.lines[ownerID]...)
	hook := f.afterLines
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return lines, nil
}

func (f *fakeCart) ClearConsumed(_ context.Context, ownerID string, refs []domain.LineRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	if f.failClears > 0 {
		f.failClears--
		return domain.ErrPersistenceConflict
	}
	consumed := make(map[domain.LineRef]bool, len(refs))
	for _, r := range refs {
		consumed[r] = true
	}
	var kept []domain.CartLine
	for _, l := range f.lines[ownerID] {
		if !consumed[l.Ref()] {
			kept = append(kept, l)
		}
	}
	f.lines[ownerID] = kept
	return nil
}

func (f *fakeCart) line(owner string, productID int64) (domain.CartLine, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines[owner] {
		if l.ProductID == productID {
			return l, true
		}
	}
	return domain.CartLine{}, false
}

func (f *fakeCart) count(owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines[owner])
}

type stubCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	err      error
}

func (s *stubCatalog) set(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *stubCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, errors.New("product not found")
	}
	return p, nil
}

func (s *stubCatalog) GetMany(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]domain.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// memOrders stores orders in memory. Stored orders are copied so callers
// cannot mutate them.
type memOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]domain.Order
	createErr error
	// hideKeyLookups makes that many idempotency lookups miss, simulating a
	// concurrent submission that commits between lookup and insert.
	hideKeyLookups int
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]domain.Order{}}
}

func (m *memOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if key, ok := order.IdempotencyKey.Get(); ok {
		for _, o := range m.orders {
			if k, ok := o.IdempotencyKey.Get(); ok && k == key && o.OwnerID == order.OwnerID {
				return repository.ErrDuplicateOrder
			}
		}
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = cp
	return nil
}

func (m *memOrders) GetOrderByIdempotencyKey(_ context.Context, ownerID, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideKeyLookups > 0 {
		m.hideKeyLookups--
		return nil, repository.ErrOrderNotFound
	}
	for _, o := range m.orders {
		if k, ok := o.IdempotencyKey.Get(); ok && k == key && o.OwnerID == ownerID {
			cp := o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) GetOrder(_ context.Context, ownerID string, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.OwnerID != ownerID {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrders) ListOrdersByOwner(_ context.Context, ownerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			cp := o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) UpdateOrder(_ context.Context, id uuid.UUID, update domain.OrderUpdate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if next, ok := update.Status.Get(); ok && next != o.Status {
		if o.Status.IsTerminal() || !domain.CanTransitionTo(o.Status, next) {
			return nil, repository.ErrInvalidTransition
		}
		o.Status = next
		m.orders[id] = o
	}
	return &o, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
