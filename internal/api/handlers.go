package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const maxDeliveryLimit = 500

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to read ledger stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read ledger stats")
		return
	}

	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Deliveries: DeliveryStats{
			Total:          stats.Total,
			Handled:        stats.Handled,
			NoAction:       stats.NoAction,
			Rejected:       stats.Rejected,
			Failed:         stats.Failed,
			Pending:        stats.Pending,
			LastReceivedAt: stats.LastReceivedAt,
		},
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleDeliveries handles GET /deliveries?limit=N, newest first.
func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxDeliveryLimit {
			n = maxDeliveryLimit
		}
		limit = n
	}

	deliveries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list deliveries", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	resp := DeliveryListResponse{Deliveries: make([]DeliveryResponse, 0, len(deliveries))}
	for _, d := range deliveries {
		item := DeliveryResponse{
			ID:         d.ID,
			MessageID:  d.MessageID,
			EventType:  d.EventType,
			Status:     string(d.Status),
			ReceivedAt: d.ReceivedAt,
			FinishedAt: d.FinishedAt,
		}
		if d.Message != nil {
			item.Message = *d.Message
		}
		resp.Deliveries = append(resp.Deliveries, item)
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
