package http

import (
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// money renders an amount the way customers see it: two decimal places.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type ProductResponse struct {
	ID       int64                   `json:"id"`
	Name     string                  `json:"name"`
	Category string                  `json:"category"`
	Price    string                  `json:"price"`
	Stock    domain.Optional[int]    `json:"stock"`
	ImageRef domain.Optional[string] `json:"image_ref"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    money(p.Price),
		Stock:    p.Stock,
		ImageRef: p.ImageRef,
	}
}

type CartLineResponse struct {
	ID        string    `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCartLineResponse(l domain.CartLine) CartLineResponse {
	return CartLineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		AddedAt:   l.AddedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

type CartItemResponse struct {
	CartLineResponse
	// Product is null when the catalog no longer lists the product.
	Product *ProductResponse `json:"product"`
}

type CartResponse struct {
	Items         []CartItemResponse `json:"items"`
	TotalQuantity int                `json:"total_quantity"`
}

func toCartResponse(views []domain.CartItemView) CartResponse {
	resp := CartResponse{Items: make([]CartItemResponse, 0, len(views))}
	for _, v := range views {
		item := CartItemResponse{CartLineResponse: toCartLineResponse(v.Line)}
		if p, ok := v.Product.Get(); ok {
			pr := toProductResponse(p)
			item.Product = &pr
		}
		resp.Items = append(resp.Items, item)
		resp.TotalQuantity += v.Line.Quantity
	}
	return resp
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type QuoteRequestDTO struct {
	PaymentMethod  string `json:"payment_method"`
	ShippingMethod string `json:"shipping_method"`
}

type QuoteResponse struct {
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shipping_cost"`
	Discount     string `json:"discount"`
	Total        string `json:"total"`
}

func toQuoteResponse(q pricing.Quote) QuoteResponse {
	r := q.Rounded()
	return QuoteResponse{
		Subtotal:     money(r.Subtotal),
		ShippingCost: money(r.ShippingCost),
		Discount:     money(r.Discount),
		Total:        money(r.Total),
	}
}

type CheckoutRequestDTO struct {
	CustomerInfo   domain.CustomerInfo     `json:"customer_info"`
	PaymentMethod  string                  `json:"payment_method"`
	ShippingMethod string                  `json:"shipping_method"`
	IdempotencyKey domain.Optional[string] `json:"idempotency_key"`
}

type OrderItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderResponseDTO struct {
	ID             string              `json:"id"`
	Status         string              `json:"status"`
	CustomerInfo   domain.CustomerInfo `json:"customer_info"`
	PaymentMethod  string              `json:"payment_method"`
	ShippingMethod string              `json:"shipping_method"`
	Items          []OrderItemDTO      `json:"items"`
	Subtotal       string              `json:"subtotal"`
	ShippingCost   string              `json:"shipping_cost"`
	Discount       string              `json:"discount"`
	Total          string              `json:"total"`
	SettlementKey  string              `json:"settlement_key"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     money(it.Price),
		})
	}
	return OrderResponseDTO{
		ID:             o.ID.String(),
		Status:         o.Status.String(),
		CustomerInfo:   o.CustomerInfo,
		PaymentMethod:  string(o.PaymentMethod),
		ShippingMethod: string(o.ShippingMethod),
		Items:          items,
		Subtotal:       money(o.Subtotal),
		ShippingCost:   money(o.ShippingCost),
		Discount:       money(o.Discount),
		Total:          money(o.Total),
		SettlementKey:  o.SettlementKey,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

type CheckoutResponseDTO struct {
	Order       OrderResponseDTO `json:"order"`
	CartCleared bool             `json:"cart_cleared"`
	Replayed    bool             `json:"replayed"`
}
