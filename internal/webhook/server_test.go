package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/mattjoyce/palisade/internal/event"
	"github.com/mattjoyce/palisade/internal/ledger"
)

// mockDispatcher is a mock implementation of EventDispatcher for testing.
type mockDispatcher struct {
	dispatchFn func(ctx context.Context, ev event.Event) (event.Outcome, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, ev event.Event) (event.Outcome, error) {
	if m.dispatchFn != nil {
		return m.dispatchFn(ctx, ev)
	}
	return event.Outcome{Handled: false, Message: "no action required"}, nil
}

// mockRecorder is a mock implementation of DeliveryRecorder for testing.
type mockRecorder struct {
	recordFn func(ctx context.Context, messageID, eventType string) (string, error)
	claimFn  func(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	finishFn func(ctx context.Context, deliveryID string, status ledger.Status, message string) error
}

func (m *mockRecorder) Record(ctx context.Context, messageID, eventType string) (string, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, messageID, eventType)
	}
	return "del-1", nil
}

func (m *mockRecorder) Claim(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, messageID, ttl)
	}
	return true, nil
}

func (m *mockRecorder) Finish(ctx context.Context, deliveryID string, status ledger.Status, message string) error {
	if m.finishFn != nil {
		return m.finishFn(ctx, deliveryID, status, message)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testServer(t *testing.T, dispatcher EventDispatcher, recorder DeliveryRecorder) (*Server, *Verifier) {
	t.Helper()
	v := newTestVerifier(t)
	cfg := Config{
		Listen:      "127.0.0.1:0",
		Path:        "/webhooks/miru",
		MaxBodySize: DefaultMaxBodySize,
	}
	return New(cfg, v, dispatcher, recorder, nil, testLogger()), v
}

func signedRequest(v *Verifier, body []byte) *http.Request {
	ts := strconv.FormatInt(testNow.Unix(), 10)
	req := httptest.NewRequest("POST", "/webhooks/miru", bytes.NewReader(body))
	req.Header.Set(HeaderID, "msg_283")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, v.Sign("msg_283", ts, body))
	return req
}

func TestHandleDelivery_Handled(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{"deployment":{"id":"dpl_123"}}}`)

	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			if ev.Type != "deployment.validate" {
				t.Errorf("event type = %q, want deployment.validate", ev.Type)
			}
			if string(ev.Data) != `{"deployment":{"id":"dpl_123"}}` {
				t.Errorf("event data = %s", ev.Data)
			}
			return event.Outcome{Handled: true, Message: "deployment validation handled successfully"}, nil
		},
	}

	server, v := testServer(t, md, nil)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "deployment validation handled successfully" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestHandleDelivery_InvalidSignature(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{}}`)

	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			t.Fatal("Dispatch should not be called with an invalid signature")
			return event.Outcome{}, nil
		},
	}

	server, v := testServer(t, md, nil)

	req := signedRequest(v, body)
	req.Header.Set(HeaderSignature, "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp FailureResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Error("valid = true, want false")
	}
	if resp.Message == "" {
		t.Error("message should explain the rejection")
	}
	if resp.Errors == nil || len(resp.Errors) != 0 {
		t.Errorf("errors = %v, want empty array", resp.Errors)
	}
}

func TestHandleDelivery_MissingHeaders(t *testing.T) {
	server, _ := testServer(t, &mockDispatcher{}, nil)

	req := httptest.NewRequest("POST", "/webhooks/miru", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleDelivery_StaleTimestamp(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{}}`)
	server, v := testServer(t, &mockDispatcher{}, nil)

	stale := testNow.Add(-10 * time.Minute)
	ts := strconv.FormatInt(stale.Unix(), 10)
	req := httptest.NewRequest("POST", "/webhooks/miru", bytes.NewReader(body))
	req.Header.Set(HeaderID, "msg_283")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, v.Sign("msg_283", ts, body))

	rec := httptest.NewRecorder()
	server.handleDelivery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleDelivery_UnknownEventType(t *testing.T) {
	body := []byte(`{"type":"release.created","data":{"release":{"id":"rls_9"}}}`)

	// Default mock: nothing registered for this type.
	server, v := testServer(t, &mockDispatcher{}, nil)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "no action required" {
		t.Errorf("message = %q, want %q", resp.Message, "no action required")
	}
}

func TestHandleDelivery_MalformedEnvelope(t *testing.T) {
	// Authentic delivery, but the payload has no data field.
	body := []byte(`{"type":"deployment.validate"}`)

	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			t.Fatal("Dispatch should not be called for a malformed envelope")
			return event.Outcome{}, nil
		},
	}

	server, v := testServer(t, md, nil)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp FailureResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Error("valid = true, want false")
	}
}

func TestHandleDelivery_HandlerError(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{"deployment":{"id":"dpl_123"}}}`)

	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			return event.Outcome{}, context.DeadlineExceeded
		},
	}

	server, v := testServer(t, md, nil)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandleDelivery_BodyTooLarge(t *testing.T) {
	server, v := testServer(t, &mockDispatcher{}, nil)
	server.config.MaxBodySize = 64

	body := bytes.Repeat([]byte("a"), 128)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleDelivery_DuplicateIgnored(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{"deployment":{"id":"dpl_123"}}}`)

	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			t.Fatal("Dispatch should not be called for a duplicate delivery")
			return event.Outcome{}, nil
		},
	}
	mr := &mockRecorder{
		claimFn: func(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
			if messageID != "msg_283" {
				t.Errorf("claim message id = %q, want msg_283", messageID)
			}
			return false, nil
		},
	}

	server, v := testServer(t, md, mr)
	server.config.Dedupe = true
	server.config.DedupeTTL = time.Hour

	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "duplicate delivery ignored" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestHandleDelivery_RecorderFailureStillProcesses(t *testing.T) {
	body := []byte(`{"type":"deployment.validate","data":{"deployment":{"id":"dpl_123"}}}`)

	dispatched := false
	md := &mockDispatcher{
		dispatchFn: func(ctx context.Context, ev event.Event) (event.Outcome, error) {
			dispatched = true
			return event.Outcome{Handled: true, Message: "deployment validation handled successfully"}, nil
		},
	}
	mr := &mockRecorder{
		recordFn: func(ctx context.Context, messageID, eventType string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}

	server, v := testServer(t, md, mr)
	rec := httptest.NewRecorder()
	server.handleDelivery(rec, signedRequest(v, body))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !dispatched {
		t.Error("delivery should be dispatched even when the ledger is down")
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := testServer(t, &mockDispatcher{}, nil)
	handler := server.Handler()

	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}

		var resp AckResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Message != "ok" {
			t.Errorf("GET %s message = %q, want ok", path, resp.Message)
		}
	}
}

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		want    int64
		wantErr bool
	}{
		{"empty uses default", "", DefaultMaxBodySize, false},
		{"plain bytes", "2048", 2048, false},
		{"kilobytes", "512KB", 512 * 1024, false},
		{"megabytes", "2MB", 2 * 1024 * 1024, false},
		{"gigabytes", "1GB", 1024 * 1024 * 1024, false},
		{"invalid", "lots", 0, true},
		{"negative", "-1MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseMaxBodySize(%q) error = %v, wantErr %v", tt.size, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMaxBodySize(%q) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}
