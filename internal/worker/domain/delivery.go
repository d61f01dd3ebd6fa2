package domain

import "github.com/cuongbtq/booking-be/internal/notification"

// Delivery is the processing record of one notification message
type Delivery struct {
	MessageID string `db:"message_id"`
	Kind      string `db:"kind"`
	Status    string `db:"status"`
	WorkerID  string `db:"worker_id"`
	Attempts  int    `db:"attempts"`
	LastError string `db:"last_error"`
}

// Task is a parsed message handed from the dispatcher to the pool
type Task struct {
	Message     *notification.Message
	DeliveryTag uint64
}
