// Package erp provides an in-memory stand-in for the order management
// system: product catalog, order lookups, stock checks, and the refund and
// resend operations the resolution tools commit against.
package erp

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Service is a concurrency-safe mock ERP backend.
type Service struct {
	mu        sync.RWMutex
	products  map[string]*Product
	orders    map[string]*Order
	shipments map[string]*Shipment

	// refunds and resends map ticket id to the order acted on; one action
	// of each kind per ticket, ever.
	refunds map[string]string
	resends map[string]string

	logger *zap.Logger
}

// NewService creates a mock ERP seeded with the demo catalog and orders.
func NewService(logger *zap.Logger) *Service {
	return &Service{
		products:  seedProducts(),
		orders:    seedOrders(),
		shipments: seedShipments(),
		refunds:   make(map[string]string),
		resends:   make(map[string]string),
		logger:    logger,
	}
}

// OrderExists reports whether the order id is known.
func (s *Service) OrderExists(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[orderID]
	return ok
}

// GetOrder returns a copy of the order, or nil if unknown.
func (s *Service) GetOrder(orderID string) *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil
	}
	cp := *o
	cp.Lines = append([]OrderLine{}, o.Lines...)
	return &cp
}

// GetProduct returns a copy of the product, or nil if unknown.
func (s *Service) GetProduct(productID string) *Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// InStock reports whether the product has units available.
func (s *Service) InStock(productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return false, fmt.Errorf("unknown product %s", productID)
	}
	return p.Stock > 0, nil
}

// ProductsContext renders the catalog as plain text for LLM prompts.
func (s *Service) ProductsContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Product catalog:\n")
	for _, id := range ids {
		p := s.products[id]
		fmt.Fprintf(&b, "- %s %s: %s ($%.2f, stock %d)\n",
			p.ID, p.Name, p.Description, float64(p.PriceCents)/100, p.Stock)
	}
	return b.String()
}

// OrderContext renders one order as plain text for LLM prompts. Empty for
// unknown orders.
func (s *Service) OrderContext(orderID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s (status: %s, total $%.2f):\n", o.ID, o.Status, float64(o.TotalCents)/100)
	for _, line := range o.Lines {
		name := line.ProductID
		if p, ok := s.products[line.ProductID]; ok {
			name = fmt.Sprintf("%s %s", p.ID, p.Name)
		}
		fmt.Fprintf(&b, "- %dx %s\n", line.Quantity, name)
	}
	return b.String()
}

// TrackOrder renders the shipment history for an order as plain text. An
// order that has not left the warehouse reports that instead of failing.
func (s *Service) TrackOrder(orderID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	sh, ok := s.shipments[orderID]
	if !ok {
		return fmt.Sprintf("Order %s has not shipped yet (order status: %s).", o.ID, o.Status), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shipment for order %s via %s, tracking %s (status: %s):\n",
		sh.OrderID, sh.Carrier, sh.TrackingNumber, sh.Status)
	for _, ev := range sh.Events {
		fmt.Fprintf(&b, "- %s %s: %s\n", ev.Timestamp, ev.Location, ev.Status)
	}
	return b.String(), nil
}

// Refund refunds the order for a ticket. A second refund for the same
// ticket is rejected.
func (s *Service) Refund(ticketID, orderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.refunds[ticketID]; ok {
		return "", fmt.Errorf("ticket %s already refunded order %s", ticketID, prev)
	}
	o, ok := s.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	if o.Status == OrderStatusRefunded {
		return "", fmt.Errorf("order %s is already refunded", orderID)
	}

	o.Status = OrderStatusRefunded
	s.refunds[ticketID] = orderID

	s.logger.Info("Refund issued",
		zap.String("ticket_id", ticketID),
		zap.String("order_id", orderID),
		zap.Int64("amount_cents", o.TotalCents))

	return fmt.Sprintf("Refund of $%.2f issued for order %s.", float64(o.TotalCents)/100, orderID), nil
}

// Resend ships a replacement for a product on the order, decrementing stock.
// A second resend for the same ticket is rejected, as is a resend of an
// out-of-stock product.
func (s *Service) Resend(ticketID, orderID, productID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.resends[ticketID]; ok {
		return "", fmt.Errorf("ticket %s already resent for order %s", ticketID, prev)
	}
	o, ok := s.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}

	found := false
	for _, line := range o.Lines {
		if line.ProductID == productID {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("product %s is not on order %s", productID, orderID)
	}

	p, ok := s.products[productID]
	if !ok {
		return "", fmt.Errorf("unknown product %s", productID)
	}
	if p.Stock <= 0 {
		return "", fmt.Errorf("product %s is out of stock", productID)
	}

	p.Stock--
	s.resends[ticketID] = orderID

	s.logger.Info("Replacement shipped",
		zap.String("ticket_id", ticketID),
		zap.String("order_id", orderID),
		zap.String("product_id", productID))

	return fmt.Sprintf("Replacement %s shipped for order %s.", p.Name, orderID), nil
}
