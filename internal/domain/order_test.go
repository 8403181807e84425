package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCustomer() CustomerInfo {
	return CustomerInfo{
		Name:  "Maria Souza",
		TaxID: "123.456.789-09",
		Email: "maria@example.com",
		Phone: "+55 11 99999-0000",
		Address: Address{
			Street:       "Rua das Flores",
			Number:       "100",
			Neighborhood: "Centro",
			City:         "Sao Paulo",
			State:        "SP",
			PostalCode:   "01000-000",
		},
	}
}

func TestCustomerInfo_Validate(t *testing.T) {
	require.NoError(t, validCustomer().Validate())

	c := validCustomer()
	c.Address.Complement = Some("apto 3")
	require.NoError(t, c.Validate())

	c = validCustomer()
	c.TaxID = "  "
	c.Address.City = ""
	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "tax_id")
	assert.Contains(t, err.Error(), "address.city")

	c = validCustomer()
	c.Email = "not-an-email"
	assert.ErrorIs(t, c.Validate(), ErrInvalidArgument)
}

func TestParseMethods(t *testing.T) {
	payments := map[string]PaymentMethod{
		"instant_transfer": PaymentInstantTransfer,
		"pix":              PaymentInstantTransfer,
		"card":             PaymentCard,
		"cartao":           PaymentCard,
		"billing_slip":     PaymentBillingSlip,
		"boleto":           PaymentBillingSlip,
	}
	got := map[string]PaymentMethod{}
	for in := range payments {
		pm, err := ParsePaymentMethod(in)
		require.NoError(t, err)
		got[in] = pm
	}
	if diff := cmp.Diff(payments, got); diff != "" {
		t.Errorf("payment methods mismatch (-want +got):\n%s", diff)
	}

	sm, err := ParseShippingMethod("sedex")
	require.NoError(t, err)
	assert.Equal(t, ShippingExpedited, sm)

	_, err = ParsePaymentMethod("bitcoin")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseShippingMethod("drone")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOrderUpdate_IsEmpty(t *testing.T) {
	assert.True(t, OrderUpdate{}.IsEmpty())
	assert.False(t, OrderUpdate{Status: Some(OrderStatusCancelled)}.IsEmpty())
}

func TestOrder_ConsumedLines(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{ProductID: 1, Quantity: 2, Line: LineRef{LineID: "l1", Revision: 3}},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 5, Line: LineRef{LineID: "l3", Revision: 1}},
	}}

	want := []LineRef{{LineID: "l1", Revision: 3}, {LineID: "l3", Revision: 1}}
	if diff := cmp.Diff(want, o.ConsumedLines()); diff != "" {
		t.Errorf("ConsumedLines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, NewOrderPlacedEvent(o).ConsumedLines())
}
