package dining

const (
	TopicOrderRegistered = "dining.order.registered"
	TopicOrderConfirmed  = "dining.order.confirmed"
	TopicOrderCancelled  = "dining.order.cancelled"
)

// Partition key = order_id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
