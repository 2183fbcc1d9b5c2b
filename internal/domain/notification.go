package domain

import "time"

// Notification delivery channels and terminal statuses.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Notification is a delivery-log entry recording one dispatched message.
// Delivery is best-effort and fire-and-forget; the log exists for audit and
// support, not for retries.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	Channel        string    `json:"channel" dynamodbav:"channel"` // "email" | "sms"
	Destination    string    `json:"destination" dynamodbav:"destination"`
	Subject        string    `json:"subject" dynamodbav:"subject"`
	Status         string    `json:"status" dynamodbav:"status"` // "sent" | "failed"
	Error          string    `json:"error,omitempty" dynamodbav:"error"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
