package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names the platform sends with every delivery.
const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

const (
	secretPrefix    = "whsec_"
	signatureScheme = "v1"

	// DefaultTolerance bounds how far a delivery timestamp may drift from
	// the local clock in either direction.
	DefaultTolerance = 5 * time.Minute
)

// VerificationError reports why an inbound delivery failed verification.
// The reason is safe to surface to the sender: it never contains the secret
// or any signature material.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "webhook verification failed: " + e.Reason
}

// Verifier checks platform delivery signatures.
//
// The signed content is "<webhook-id>.<webhook-timestamp>.<body>", HMAC-SHA256
// under the shared secret, base64-encoded. The signature header may carry
// several whitespace-separated "scheme,signature" pairs (the platform sends
// multiple during secret rotation); a delivery is accepted if any v1 pair
// matches.
type Verifier struct {
	key       []byte
	tolerance time.Duration

	// Now is the clock used for timestamp tolerance checks.
	// Tests override it to pin the window.
	Now func() time.Time
}

// NewVerifier builds a Verifier from the platform signing secret. The secret
// is a base64 string, usually carrying the whsec_ prefix the platform UI
// shows; the prefix is stripped if present. A tolerance <= 0 selects
// DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	encoded := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("webhook secret is not valid base64: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("webhook secret is empty")
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	return &Verifier{
		key:       key,
		tolerance: tolerance,
		Now:       time.Now,
	}, nil
}

// Verify checks the delivery headers against the raw request body.
// A nil return means body is the authenticated payload.
func (v *Verifier) Verify(headers http.Header, body []byte) error {
	msgID := headers.Get(HeaderID)
	timestamp := headers.Get(HeaderTimestamp)
	signatures := headers.Get(HeaderSignature)

	if msgID == "" || timestamp == "" || signatures == "" {
		return &VerificationError{Reason: "missing webhook headers"}
	}

	if err := v.checkTimestamp(timestamp); err != nil {
		return err
	}

	expected := v.compute(msgID, timestamp, body)

	for _, pair := range strings.Fields(signatures) {
		scheme, sig, found := strings.Cut(pair, ",")
		if !found || scheme != signatureScheme {
			// Unknown schemes are skipped, not rejected: the platform may
			// introduce new ones alongside v1.
			continue
		}
		if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1 {
			return nil
		}
	}

	return &VerificationError{Reason: "no matching signature"}
}

// checkTimestamp rejects deliveries whose timestamp falls outside the
// tolerance window on either side, bounding replay of captured requests.
func (v *Verifier) checkTimestamp(value string) error {
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return &VerificationError{Reason: "invalid timestamp header"}
	}

	now := v.Now()
	issued := time.Unix(ts, 0)

	if issued.Before(now.Add(-v.tolerance)) {
		return &VerificationError{Reason: "timestamp too old"}
	}
	if issued.After(now.Add(v.tolerance)) {
		return &VerificationError{Reason: "timestamp too new"}
	}
	return nil
}

// Sign produces a valid "v1,<signature>" header value for the given message.
// Used by tests and the doctor self-check to build authentic deliveries.
func (v *Verifier) Sign(msgID, timestamp string, body []byte) string {
	return signatureScheme + "," + v.compute(msgID, timestamp, body)
}

func (v *Verifier) compute(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
