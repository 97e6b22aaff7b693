package domain

// forward lists the single next step of the fulfilment lifecycle.
var forward = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true},
	OrderStatusConfirmed: {OrderStatusShipped: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanAdvance reports whether from -> to is a forward lifecycle step.
// Cancellation is not a step; it has its own path.
func CanAdvance(from, to OrderStatus) bool {
	return forward[from][to]
}
