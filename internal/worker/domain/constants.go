package domain

// Delivery status constants
const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusDelivered  = "delivered"
	DeliveryStatusFailed     = "failed"
)
