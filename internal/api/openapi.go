package api

import "net/http"

// buildOpenAPIDoc returns an OpenAPI 3.1 document covering the admin surface.
func buildOpenAPIDoc() map[string]any {
	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "Palisade Admin API",
			"version": "1.0",
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"operationId": "healthz",
					"summary":     "Service health and delivery ledger totals",
					"responses": map[string]any{
						"200": map[string]any{"description": "Service is up"},
					},
				},
			},
			"/deliveries": map[string]any{
				"get": map[string]any{
					"operationId": "listDeliveries",
					"summary":     "Recent webhook deliveries, newest first",
					"security":    []map[string]any{{"BearerAuth": []string{}}},
					"parameters": []map[string]any{
						{
							"name":   "limit",
							"in":     "query",
							"schema": map[string]any{"type": "integer", "minimum": 1, "maximum": maxDeliveryLimit},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "Delivery list"},
						"401": map[string]any{"description": "Missing or invalid token"},
						"403": map[string]any{"description": "Insufficient scope"},
					},
				},
			},
			"/events": map[string]any{
				"get": map[string]any{
					"operationId": "streamEvents",
					"summary":     "Delivery lifecycle events as SSE",
					"security":    []map[string]any{{"BearerAuth": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{"description": "text/event-stream"},
						"401": map[string]any{"description": "Missing or invalid token"},
						"403": map[string]any{"description": "Insufficient scope"},
					},
				},
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

// handleOpenAPI handles GET /openapi.json (no auth).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}
