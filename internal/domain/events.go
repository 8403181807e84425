package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderPlaced = "order.placed"
)

// OrderPlacedEvent is written to the outbox in the same transaction as the
// order and published to downstream consumers.
type OrderPlacedEvent struct {
	OrderID        string          `json:"order_id"`
	OwnerID        string          `json:"owner_id"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	ShippingMethod ShippingMethod  `json:"shipping_method"`
	SettlementKey  string          `json:"settlement_key"`
	PlacedAt       time.Time       `json:"placed_at"`
}

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:        o.ID.String(),
		OwnerID:        o.OwnerID,
		Items:          o.Items,
		Total:          o.Total,
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
		SettlementKey:  o.SettlementKey,
		PlacedAt:       o.CreatedAt,
	}
}

func (e OrderPlacedEvent) ConsumedLines() []LineRef {
	return lineRefs(e.Items)
}

// FulfillmentEvent is produced by the external fulfillment process to move
// an order out of pending.
type FulfillmentEvent struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
