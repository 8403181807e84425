package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem freezes a product's price and name at the moment the order is
// placed. Later catalog edits never reach it. Line is the cart line revision
// the item was taken from.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Line      LineRef         `json:"line"`
}

type Address struct {
	Street       string           `json:"street"`
	Number       string           `json:"number"`
	Complement   Optional[string] `json:"complement"`
	Neighborhood string           `json:"neighborhood"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	PostalCode   string           `json:"postal_code"`
}

type CustomerInfo struct {
	Name    string  `json:"name"`
	TaxID   string  `json:"tax_id"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

// Validate checks that every required field is filled in. Only the address
// complement may be left out.
func (c CustomerInfo) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"tax_id", c.TaxID},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address.street", c.Address.Street},
		{"address.number", c.Address.Number},
		{"address.neighborhood", c.Address.Neighborhood},
		{"address.city", c.Address.City},
		{"address.state", c.Address.State},
		{"address.postal_code", c.Address.PostalCode},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("customer info missing %s: %w", strings.Join(missing, ", "), ErrInvalidArgument)
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("customer email %q is malformed: %w", c.Email, ErrInvalidArgument)
	}
	return nil
}

// Order is immutable after creation except for Status.
type Order struct {
	ID             uuid.UUID
	OwnerID        string
	IdempotencyKey Optional[string]
	CustomerInfo   CustomerInfo
	PaymentMethod  PaymentMethod
	ShippingMethod ShippingMethod
	Items          []OrderItem
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	Status         OrderStatus
	SettlementKey  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConsumedLines returns the cart line revisions the order was built from.
func (o *Order) ConsumedLines() []LineRef {
	return lineRefs(o.Items)
}

func lineRefs(items []OrderItem) []LineRef {
	refs := make([]LineRef, 0, len(items))
	for _, it := range items {
		if it.Line.LineID != "" {
			refs = append(refs, it.Line)
		}
	}
	return refs
}

// OrderUpdate lists the fields of an order that may change after creation.
// Each field is either left unchanged (absent) or set to the given value.
type OrderUpdate struct {
	Status Optional[OrderStatus]
}

func (u OrderUpdate) IsEmpty() bool {
	return !u.Status.IsPresent()
}
