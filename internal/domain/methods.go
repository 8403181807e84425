package domain

import "fmt"

type PaymentMethod string

const (
	PaymentInstantTransfer PaymentMethod = "instant_transfer"
	PaymentCard            PaymentMethod = "card"
	PaymentBillingSlip     PaymentMethod = "billing_slip"
)

type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpedited ShippingMethod = "expedited"
)

// ParsePaymentMethod accepts the canonical names and the storefront's legacy
// form values (pix, cartao, boleto).
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case string(PaymentInstantTransfer), "pix":
		return PaymentInstantTransfer, nil
	case string(PaymentCard), "cartao":
		return PaymentCard, nil
	case string(PaymentBillingSlip), "boleto":
		return PaymentBillingSlip, nil
	}
	return "", fmt.Errorf("unknown payment method %q: %w", s, ErrInvalidArgument)
}

// ParseShippingMethod accepts the canonical names and the legacy carrier
// names (pac, sedex).
func ParseShippingMethod(s string) (ShippingMethod, error) {
	switch s {
	case string(ShippingStandard), "pac":
		return ShippingStandard, nil
	case string(ShippingExpedited), "sedex":
		return ShippingExpedited, nil
	}
	return "", fmt.Errorf("unknown shipping method %q: %w", s, ErrInvalidArgument)
}
