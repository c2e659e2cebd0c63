package webhook

import (
	"context"
	"time"

	"github.com/mattjoyce/palisade/internal/event"
	"github.com/mattjoyce/palisade/internal/ledger"
)

// EventDispatcher routes verified platform events to their handlers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) (event.Outcome, error)
}

// DeliveryRecorder persists the delivery audit trail. Recording is
// best-effort from the server's point of view: a recorder failure is logged
// and the delivery is still processed.
type DeliveryRecorder interface {
	Record(ctx context.Context, messageID, eventType string) (string, error)
	Claim(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	Finish(ctx context.Context, deliveryID string, status ledger.Status, message string) error
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the webhook listener binds to.
	Listen string

	// Path is the URL path the platform posts deliveries to.
	Path string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// Dedupe drops redeliveries of a webhook-id already handled within
	// DedupeTTL.
	Dedupe    bool
	DedupeTTL time.Duration
}

// AckResponse is the JSON response for accepted deliveries.
type AckResponse struct {
	Message string `json:"message"`
}

// FailureResponse is the JSON response for deliveries that could not be
// verified or handled. Errors is always present so the platform sees the
// same rejection shape it produces itself.
type FailureResponse struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// DefaultMaxBodySize bounds request bodies when max_body_size is not configured.
const DefaultMaxBodySize = 1048576 // 1 MB
