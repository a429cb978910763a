package erp

// Product is one catalog entry.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
}

// OrderLine is one product line within an order.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// Order is one customer order.
type Order struct {
	ID         string
	CustomerID string
	Status     string
	Lines      []OrderLine
	TotalCents int64
}

// Order statuses.
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusRefunded   = "refunded"
)

// TrackingEvent is one carrier scan in a shipment's history.
type TrackingEvent struct {
	Timestamp string
	Location  string
	Status    string
}

// Shipment is the carrier record for an order that left the warehouse.
// Orders still processing have no shipment.
type Shipment struct {
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         string
	Events         []TrackingEvent
}

// Shipment statuses.
const (
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelayed   = "delayed"
	ShipmentStatusDelivered = "delivered"
)

func seedProducts() map[string]*Product {
	products := []*Product{
		{ID: "P1001", Name: "Aurora Wireless Earbuds", Description: "Bluetooth 5.3 earbuds with active noise cancellation", PriceCents: 7999, Stock: 42},
		{ID: "P1002", Name: "Vertex Smart Watch", Description: "Fitness tracking watch with 7-day battery", PriceCents: 15999, Stock: 17},
		{ID: "P1003", Name: "Orbit Laptop Stand", Description: "Aluminium adjustable laptop stand", PriceCents: 3499, Stock: 0},
		{ID: "P1004", Name: "Nexus USB-C Hub", Description: "7-in-1 USB-C hub with HDMI and card reader", PriceCents: 4599, Stock: 88},
		{ID: "P1005", Name: "Tactile Mechanical Keyboard", Description: "Hot-swappable 75% mechanical keyboard", PriceCents: 10999, Stock: 5},
	}

	m := make(map[string]*Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

func seedOrders() map[string]*Order {
	orders := []*Order{
		{
			ID: "ORD12345", CustomerID: "cust-001", Status: OrderStatusDelivered,
			Lines:      []OrderLine{{ProductID: "P1001", Quantity: 1}},
			TotalCents: 7999,
		},
		{
			ID: "ORD67890", CustomerID: "cust-002", Status: OrderStatusDelivered,
			Lines:      []OrderLine{{ProductID: "P1003", Quantity: 1}, {ProductID: "P1004", Quantity: 2}},
			TotalCents: 12697,
		},
		{
			ID: "ORD54321", CustomerID: "cust-003", Status: OrderStatusShipped,
			Lines:      []OrderLine{{ProductID: "P1002", Quantity: 1}},
			TotalCents: 15999,
		},
		{
			ID: "ORD24680", CustomerID: "cust-004", Status: OrderStatusProcessing,
			Lines:      []OrderLine{{ProductID: "P1005", Quantity: 1}},
			TotalCents: 10999,
		},
	}

	m := make(map[string]*Order, len(orders))
	for _, o := range orders {
		m[o.ID] = o
	}
	return m
}

func seedShipments() map[string]*Shipment {
	shipments := []*Shipment{
		{
			OrderID: "ORD12345", Carrier: "FleetPost", TrackingNumber: "FP-7731-2209",
			Status: ShipmentStatusDelivered,
			Events: []TrackingEvent{
				{Timestamp: "2026-08-18 08:12", Location: "Rotterdam hub", Status: "picked up"},
				{Timestamp: "2026-08-19 14:40", Location: "Utrecht sorting center", Status: "in transit"},
				{Timestamp: "2026-08-20 09:05", Location: "Local depot", Status: "out for delivery"},
				{Timestamp: "2026-08-20 13:27", Location: "Front door", Status: "delivered"},
			},
		},
		{
			OrderID: "ORD67890", Carrier: "FleetPost", TrackingNumber: "FP-7731-4415",
			Status: ShipmentStatusDelivered,
			Events: []TrackingEvent{
				{Timestamp: "2026-08-15 10:02", Location: "Rotterdam hub", Status: "picked up"},
				{Timestamp: "2026-08-17 16:55", Location: "Front door", Status: "delivered"},
			},
		},
		{
			OrderID: "ORD54321", Carrier: "SwiftParcel", TrackingNumber: "SW-0042-8816",
			Status: ShipmentStatusDelayed,
			Events: []TrackingEvent{
				{Timestamp: "2026-08-21 07:30", Location: "Rotterdam hub", Status: "picked up"},
				{Timestamp: "2026-08-22 19:10", Location: "Regional facility", Status: "arrival scan"},
				{Timestamp: "2026-08-24 06:00", Location: "Regional facility", Status: "delayed - awaiting line-haul capacity"},
			},
		},
	}

	m := make(map[string]*Shipment, len(shipments))
	for _, sh := range shipments {
		m[sh.OrderID] = sh
	}
	return m
}
