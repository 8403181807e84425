package http

import (
	"context"
	"time"

	"github.com/beastsupply/storefront/internal/checkout"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/pricing"
	"github.com/google/uuid"
)

type fakeCartService struct {
	views     []domain.CartItemView
	line      domain.CartLine
	setResult domain.Optional[domain.CartLine]
	err       error

	lastOwner string
	lastQty   int
	lastLine  string
}

func (f *fakeCartService) Add(_ context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error) {
	f.lastOwner, f.lastQty = ownerID, quantity
	if f.err != nil {
		return domain.CartLine{}, f.err
	}
	l := f.line
	l.OwnerID, l.ProductID, l.Quantity = ownerID, productID, quantity
	return l, nil
}

func (f *fakeCartService) SetQuantity(_ context.Context, ownerID, lineID string, quantity int) (domain.Optional[domain.CartLine], error) {
	f.lastOwner, f.lastLine, f.lastQty = ownerID, lineID, quantity
	if f.err != nil {
		return domain.None[domain.CartLine](), f.err
	}
	return f.setResult, nil
}

func (f *fakeCartService) Remove(_ context.Context, ownerID, lineID string) error {
	f.lastOwner, f.lastLine = ownerID, lineID
	return f.err
}

func (f *fakeCartService) List(_ context.Context, ownerID string) ([]domain.CartItemView, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	if ownerID == "" {
		return []domain.CartItemView{}, nil
	}
	return f.views, nil
}

func (f *fakeCartService) Clear(_ context.Context, ownerID string) error {
	f.lastOwner = ownerID
	return f.err
}

type fakeCheckoutService struct {
	quote  pricing.Quote
	result *checkout.Result
	err    error

	lastOpts    pricing.Options
	lastRequest checkout.Request
}

func (f *fakeCheckoutService) Quote(_ context.Context, _ string, opts pricing.Options) (pricing.Quote, error) {
	f.lastOpts = opts
	return f.quote, f.err
}

func (f *fakeCheckoutService) CreateOrder(_ context.Context, _ string, req checkout.Request) (*checkout.Result, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeOrdersService struct {
	orders []*domain.Order
	err    error
}

func (f *fakeOrdersService) GetOrder(_ context.Context, ownerID string, id uuid.UUID) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.orders {
		if o.ID == id && o.OwnerID == ownerID {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrdersService) ListOrders(_ context.Context, ownerID string) ([]*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Order
	for _, o := range f.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	products []domain.Product
	err      error
}

func (f *fakeCatalog) List(context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	if f.err != nil {
		return domain.Product{}, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

var fixedTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
