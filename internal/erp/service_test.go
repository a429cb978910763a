package erp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(zap.NewNop())
}

func TestOrderLookups(t *testing.T) {
	s := newTestService()

	assert.True(t, s.OrderExists("ORD12345"))
	assert.False(t, s.OrderExists("ORD00000"))

	o := s.GetOrder("ORD67890")
	require.NotNil(t, o)
	assert.Len(t, o.Lines, 2)

	assert.Nil(t, s.GetOrder("ORD00000"))
}

func TestGetOrderReturnsCopy(t *testing.T) {
	s := newTestService()

	o := s.GetOrder("ORD12345")
	require.NotNil(t, o)
	o.Status = "tampered"
	o.Lines[0].Quantity = 99

	fresh := s.GetOrder("ORD12345")
	assert.Equal(t, OrderStatusDelivered, fresh.Status)
	assert.Equal(t, 1, fresh.Lines[0].Quantity)
}

func TestInStock(t *testing.T) {
	s := newTestService()

	inStock, err := s.InStock("P1001")
	require.NoError(t, err)
	assert.True(t, inStock)

	inStock, err = s.InStock("P1003")
	require.NoError(t, err)
	assert.False(t, inStock, "P1003 is seeded out of stock")

	_, err = s.InStock("P9999")
	assert.Error(t, err)
}

func TestRefundOncePerTicket(t *testing.T) {
	s := newTestService()

	out, err := s.Refund("ticket-1", "ORD12345")
	require.NoError(t, err)
	assert.Contains(t, out, "ORD12345")
	assert.Equal(t, OrderStatusRefunded, s.GetOrder("ORD12345").Status)

	// Same ticket cannot refund twice, even a different order.
	_, err = s.Refund("ticket-1", "ORD67890")
	assert.Error(t, err)

	// An already refunded order cannot be refunded by another ticket.
	_, err = s.Refund("ticket-2", "ORD12345")
	assert.Error(t, err)
}

func TestResendRules(t *testing.T) {
	s := newTestService()

	stockBefore := s.GetProduct("P1001").Stock
	out, err := s.Resend("ticket-1", "ORD12345", "P1001")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, stockBefore-1, s.GetProduct("P1001").Stock)

	// One resend per ticket.
	_, err = s.Resend("ticket-1", "ORD12345", "P1001")
	assert.Error(t, err)

	// Product must be on the order.
	_, err = s.Resend("ticket-2", "ORD12345", "P1002")
	assert.Error(t, err)

	// Out of stock product cannot be resent.
	_, err = s.Resend("ticket-3", "ORD67890", "P1003")
	assert.Error(t, err)

	// Unknown order.
	_, err = s.Resend("ticket-4", "ORD00000", "P1001")
	assert.Error(t, err)
}

func TestTrackOrder(t *testing.T) {
	s := newTestService()

	// Delivered order has the full scan history.
	out, err := s.TrackOrder("ORD12345")
	require.NoError(t, err)
	assert.Contains(t, out, "ORD12345")
	assert.Contains(t, out, ShipmentStatusDelivered)
	assert.Contains(t, out, "out for delivery")

	// Shipped-but-delayed order surfaces the delay.
	out, err = s.TrackOrder("ORD54321")
	require.NoError(t, err)
	assert.Contains(t, out, ShipmentStatusDelayed)
	assert.Contains(t, out, "SwiftParcel")

	// Order still processing has no shipment yet.
	out, err = s.TrackOrder("ORD24680")
	require.NoError(t, err)
	assert.Contains(t, out, "not shipped")
	assert.Contains(t, out, OrderStatusProcessing)

	_, err = s.TrackOrder("ORD00000")
	assert.Error(t, err)
}

func TestContextRendering(t *testing.T) {
	s := newTestService()

	products := s.ProductsContext()
	for _, id := range []string{"P1001", "P1002", "P1003", "P1004", "P1005"} {
		assert.Contains(t, products, id)
	}

	order := s.OrderContext("ORD12345")
	assert.Contains(t, order, "ORD12345")
	assert.Contains(t, order, "P1001")

	assert.Empty(t, s.OrderContext("ORD00000"))
}
