// Package pricing computes checkout totals from cart contents and the
// selected shipping and payment options. Everything here is a pure function
// of its inputs; the checkout preview and order settlement call the same
// code so the amount shown to a customer is the amount persisted.
package pricing

import (
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Line is a materialized cart line: the unit price in effect and a quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Options struct {
	Shipping domain.ShippingMethod
	Payment  domain.PaymentMethod
}

// Rules are the configurable pricing constants.
type Rules struct {
	FreeShippingThreshold decimal.Decimal
	StandardShippingFee   decimal.Decimal
	ExpeditedShippingFee  decimal.Decimal
	// InstantTransferDiscountRate is a fraction, 0.05 for five percent.
	InstantTransferDiscountRate decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold:       decimal.RequireFromString("199.00"),
		StandardShippingFee:         decimal.RequireFromString("15.00"),
		ExpeditedShippingFee:        decimal.RequireFromString("25.00"),
		InstantTransferDiscountRate: decimal.RequireFromString("0.05"),
	}
}

func (r Rules) Validate() error {
	if r.FreeShippingThreshold.IsNegative() || r.StandardShippingFee.IsNegative() {
		return fmt.Errorf("pricing amounts must be non-negative: %w", domain.ErrInvalidArgument)
	}
	if !r.ExpeditedShippingFee.GreaterThan(r.StandardShippingFee) {
		return fmt.Errorf("expedited fee %s must exceed standard fee %s: %w",
			r.ExpeditedShippingFee, r.StandardShippingFee, domain.ErrInvalidArgument)
	}
	if r.InstantTransferDiscountRate.IsNegative() || r.InstantTransferDiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount rate %s must be within [0, 1]: %w", r.InstantTransferDiscountRate, domain.ErrInvalidArgument)
	}
	return nil
}

// Quote is an unrounded price breakdown. Total always equals
// Subtotal + ShippingCost - Discount.
type Quote struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// Rounded returns the quote as presented to a customer, two decimal places.
func (q Quote) Rounded() Quote {
	return Quote{
		Subtotal:     q.Subtotal.Round(2),
		ShippingCost: q.ShippingCost.Round(2),
		Discount:     q.Discount.Round(2),
		Total:        q.Total.Round(2),
	}
}

type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) Quote(lines []Line, opts Options) (Quote, error) {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Quote{}, fmt.Errorf("line quantity %d must be positive: %w", l.Quantity, domain.ErrInvalidArgument)
		}
		if l.UnitPrice.IsNegative() {
			return Quote{}, fmt.Errorf("unit price %s must be non-negative: %w", l.UnitPrice, domain.ErrInvalidArgument)
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping, err := e.shippingCost(subtotal, opts.Shipping)
	if err != nil {
		return Quote{}, err
	}

	preDiscount := subtotal.Add(shipping)

	discount, err := e.discount(preDiscount, opts.Payment)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        preDiscount.Sub(discount),
	}, nil
}

// shippingCost is evaluated against the subtotal, before any discount.
func (e *Engine) shippingCost(subtotal decimal.Decimal, method domain.ShippingMethod) (decimal.Decimal, error) {
	var fee decimal.Decimal
	switch method {
	case domain.ShippingStandard:
		fee = e.rules.StandardShippingFee
	case domain.ShippingExpedited:
		fee = e.rules.ExpeditedShippingFee
	default:
		return decimal.Zero, fmt.Errorf("unknown shipping method %q: %w", method, domain.ErrInvalidArgument)
	}
	if subtotal.GreaterThanOrEqual(e.rules.FreeShippingThreshold) {
		return decimal.Zero, nil
	}
	return fee, nil
}

func (e *Engine) discount(preDiscount decimal.Decimal, method domain.PaymentMethod) (decimal.Decimal, error) {
	switch method {
	case domain.PaymentInstantTransfer:
		return preDiscount.Mul(e.rules.InstantTransferDiscountRate), nil
	case domain.PaymentCard, domain.PaymentBillingSlip:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown payment method %q: %w", method, domain.ErrInvalidArgument)
	}
}
