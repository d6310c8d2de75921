package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-capture/internal/domain/order"
)

func TestDecodeCartRequest(t *testing.T) {
	cart, present, err := decodeCartRequest([]byte(`{"cart":{"total":6.00,"items":[{"productName":"A","quantity":2,"price":3.00}]}}`))
	require.NoError(t, err)
	require.True(t, present)
	require.NotNil(t, cart)
	assert.Equal(t, "6", cart.Total.String())
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "A", cart.Items[0].ProductName)

	_, _, err = decodeCartRequest([]byte(`{"cart":{"total":"six"}}`))
	require.ErrorContains(t, err, `field "total"`)
}

func TestDecodeDraft(t *testing.T) {
	d, err := decodeDraft([]byte(validDraftJSON))
	require.NoError(t, err)
	require.NotNil(t, d.Customer)
	assert.Equal(t, "jane@example.com", d.Customer.Email)
	assert.Equal(t, "+905551112233", d.Customer.PhoneNumber)
	assert.Len(t, d.Items, 1)
	assert.Equal(t, "6", d.Total.String())
	assert.Equal(t, "cash_on_delivery", d.PaymentMethod)
	assert.Empty(t, d.Status)

	_, err = decodeDraft([]byte(`{"user":{"email":7}}`))
	require.ErrorContains(t, err, `field "email"`)
}

func TestDecodeStatusUpdate(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want order.Status
	}{
		{name: "Camel", body: `{"orderStatus":"captured"}`, want: order.StatusCaptured},
		{name: "Snake", body: `{"order_status":"failed"}`, want: order.StatusFailed},
		{name: "Null", body: `{"orderStatus":null}`, want: ""},
		{name: "Missing", body: `{"other":1}`, want: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeStatusUpdate([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := decodeStatusUpdate([]byte(`{"orderStatus":1}`))
	require.ErrorContains(t, err, `field "orderStatus"`)
}
