package ledger

import (
	"errors"
	"time"
)

type Status string

const (
	StatusReceived Status = "received"
	StatusHandled  Status = "handled"
	StatusNoAction Status = "no_action"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Delivery is one audited webhook delivery. MessageID is the platform's
// webhook message id; ID is the ledger's own row id, since the platform may
// redeliver the same message id more than once.
type Delivery struct {
	ID         string
	MessageID  string
	EventType  string
	Status     Status
	Message    *string
	ReceivedAt time.Time
	FinishedAt *time.Time
}

// Stats summarizes the ledger by terminal status. Pending counts rows still
// in the received state.
type Stats struct {
	Total          int
	Handled        int
	NoAction       int
	Rejected       int
	Failed         int
	Pending        int
	LastReceivedAt *time.Time
}

var ErrDeliveryNotFound = errors.New("delivery not found")
