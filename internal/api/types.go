package api

import "time"

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string        `json:"status"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Deliveries    DeliveryStats `json:"deliveries"`
}

// DeliveryStats summarizes the delivery ledger by outcome.
type DeliveryStats struct {
	Total          int        `json:"total"`
	Handled        int        `json:"handled"`
	NoAction       int        `json:"no_action"`
	Rejected       int        `json:"rejected"`
	Failed         int        `json:"failed"`
	Pending        int        `json:"pending"`
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
}

// DeliveryResponse is one audited delivery as returned by GET /deliveries.
type DeliveryResponse struct {
	ID         string     `json:"id"`
	MessageID  string     `json:"message_id"`
	EventType  string     `json:"event_type"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// DeliveryListResponse is returned by GET /deliveries.
type DeliveryListResponse struct {
	Deliveries []DeliveryResponse `json:"deliveries"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
