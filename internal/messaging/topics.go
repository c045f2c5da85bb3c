package messaging

// Kafka topics. Events for one order share the order id as message key
// so they stay ordered within a partition.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)
