// Package webhook implements the inbound endpoint for platform deliveries
// with signed-payload verification.
//
// Every delivery the platform sends carries webhook-id, webhook-timestamp and
// webhook-signature headers. The signature is HMAC-SHA256 over
// "<id>.<timestamp>.<body>" under a shared whsec_ secret, so verification
// must run against the raw body bytes before anything parses them.
//
// # Security Model
//
// - Signatures verified with crypto/subtle (constant-time comparison)
// - Timestamps bounded to a tolerance window to limit replay
// - Body size limits enforced before verification
// - Error responses carry a reason but never signature or secret material
// - Request logging excludes payloads and signatures
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path
//  2. Body size checked (reject with 413 if too large)
//  3. Signature verified over the raw body (reject with 400 if invalid)
//  4. Envelope unwrapped into {type, data} (500 if malformed)
//  5. Optional dedupe claim by webhook-id
//  6. Event dispatched to its handler synchronously
//  7. 200 returned with the handler's outcome message; events with no
//     registered handler are acknowledged with "no action required"
//
// # Error Responses
//
// Failures use the platform's own rejection shape
// {"valid": false, "message": ..., "errors": []}:
//
// - 400 Bad Request: verification failed (missing headers, stale timestamp,
//   signature mismatch)
// - 413 Payload Too Large: body exceeds max_body_size
// - 500 Internal Server Error: malformed envelope or handler failure; the
//   platform retries these
//
// GET / and GET /healthz answer {"message": "ok"} for liveness probes.
package webhook
