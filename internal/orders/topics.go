package orders

const (
	TopicOrderCreated       = "checkout.order.created"
	TopicStockDecrementFail = "checkout.stock.decrement.failed"
)

// Partition key = order_id so every event for one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
