package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/palisade/internal/event"
	"github.com/mattjoyce/palisade/internal/events"
	"github.com/mattjoyce/palisade/internal/ledger"
)

// Server receives signed platform deliveries and routes them to handlers.
type Server struct {
	config     Config
	verifier   *Verifier
	dispatcher EventDispatcher
	recorder   DeliveryRecorder
	hub        *events.Hub
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new webhook server instance. recorder and hub may be nil;
// verification and dispatch do not depend on them.
func New(config Config, verifier *Verifier, dispatcher EventDispatcher, recorder DeliveryRecorder, hub *events.Hub, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	return &Server{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		recorder:   recorder,
		hub:        hub,
		logger:     logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the configured router. Exposed for tests that drive the
// server through httptest instead of a listening socket.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleDelivery)

	// The platform pings the root path to probe liveness.
	r.Get("/", s.handleHealth)
	r.Get("/healthz", s.handleHealth)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads and signatures).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, AckResponse{Message: "ok"})
}

// handleDelivery handles one platform delivery end to end: verify, unwrap,
// dispatch, ack. Processing is synchronous; the response code tells the
// platform whether to retry.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondFailure(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	if int64(len(body)) > s.config.MaxBodySize {
		s.respondFailure(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	msgID := r.Header.Get(HeaderID)

	// Verification runs over the raw body, before any parsing.
	if err := s.verifier.Verify(r.Header, body); err != nil {
		s.logger.Warn("delivery rejected", "delivery", msgID, "error", err)
		s.audit(ctx, msgID, "", ledger.StatusRejected, err.Error())
		s.publish(events.TypeRejected, map[string]any{
			"message_id": msgID,
			"reason":     err.Error(),
		})
		s.respondFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := event.Unwrap(body)
	if err != nil {
		s.logger.Error("malformed event envelope", "delivery", msgID, "error", err)
		s.audit(ctx, msgID, "", ledger.StatusFailed, err.Error())
		s.respondFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger.With("delivery", msgID, "event_type", ev.Type)

	if s.config.Dedupe && s.recorder != nil {
		fresh, err := s.recorder.Claim(ctx, msgID, s.config.DedupeTTL)
		if err != nil {
			// Fail open: a broken dedupe store must not drop deliveries.
			logger.Error("dedupe claim failed", "error", err)
		} else if !fresh {
			logger.Info("duplicate delivery ignored")
			s.respondJSON(w, http.StatusOK, AckResponse{Message: "duplicate delivery ignored"})
			return
		}
	}

	deliveryID := s.record(ctx, msgID, ev.Type)
	s.publish(events.TypeReceived, map[string]any{
		"delivery_id": deliveryID,
		"message_id":  msgID,
		"event_type":  ev.Type,
	})

	outcome, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		logger.Error("event handling failed", "error", err)
		s.finish(ctx, deliveryID, ledger.StatusFailed, err.Error())
		s.publish(events.TypeFailed, map[string]any{
			"delivery_id": deliveryID,
			"message_id":  msgID,
			"event_type":  ev.Type,
			"error":       err.Error(),
		})
		s.respondFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := ledger.StatusHandled
	eventType := events.TypeHandled
	if !outcome.Handled {
		status = ledger.StatusNoAction
		eventType = events.TypeNoAction
	}

	logger.Info("delivery processed", "handled", outcome.Handled, "message", outcome.Message)
	s.finish(ctx, deliveryID, status, outcome.Message)
	s.publish(eventType, map[string]any{
		"delivery_id": deliveryID,
		"message_id":  msgID,
		"event_type":  ev.Type,
		"message":     outcome.Message,
	})

	s.respondJSON(w, http.StatusOK, AckResponse{Message: outcome.Message})
}

// record opens a ledger row for the delivery. Best-effort.
func (s *Server) record(ctx context.Context, messageID, eventType string) string {
	if s.recorder == nil {
		return ""
	}
	id, err := s.recorder.Record(ctx, messageID, eventType)
	if err != nil {
		s.logger.Error("failed to record delivery", "delivery", messageID, "error", err)
		return ""
	}
	return id
}

// finish closes a ledger row with its terminal status. Best-effort.
func (s *Server) finish(ctx context.Context, deliveryID string, status ledger.Status, message string) {
	if s.recorder == nil || deliveryID == "" {
		return
	}
	if err := s.recorder.Finish(ctx, deliveryID, status, message); err != nil {
		s.logger.Error("failed to update delivery record", "delivery_id", deliveryID, "error", err)
	}
}

// audit records a delivery that never reached dispatch (rejected or malformed).
func (s *Server) audit(ctx context.Context, messageID, eventType string, status ledger.Status, message string) {
	id := s.record(ctx, messageID, eventType)
	s.finish(ctx, id, status, message)
}

func (s *Server) publish(eventType string, data any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(eventType, data)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondFailure sends the rejection envelope the platform expects.
func (s *Server) respondFailure(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, FailureResponse{
		Valid:   false,
		Message: message,
		Errors:  []string{},
	})
}
