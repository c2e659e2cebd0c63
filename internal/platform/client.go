// Package platform is the client for the deployment platform's REST API:
// fetching expanded entities, submitting deployment verdicts, and
// approving, rejecting or deploying individual config instances.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattjoyce/palisade/internal/log"
)

const (
	defaultRequestTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a platform response is read.
	maxResponseBytes int64 = 4 << 20
)

// Expand targets for GetDeployment and GetConfigInstance.
const (
	ExpandDevice          = "device"
	ExpandRelease         = "release"
	ExpandInstanceContent = "config_instances.content"
	ExpandContent         = "content"
)

// Client calls the deployment platform's REST API. All calls are bounded by
// the client timeout and the request context; failures surface as errors and
// are never retried here.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a platform API client. A timeout <= 0 selects the
// default of 30 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("platform"),
	}
}

// GetDeployment fetches a deployment, expanding the named nested entities.
func (c *Client) GetDeployment(ctx context.Context, id string, expand ...string) (*Deployment, error) {
	var deployment Deployment
	if err := c.do(ctx, http.MethodGet, "/deployments/"+url.PathEscape(id), expandQuery(expand), nil, &deployment); err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return &deployment, nil
}

// ValidateDeployment submits a verdict for a deployment and returns the
// effect the platform applied.
func (c *Client) ValidateDeployment(ctx context.Context, id string, verdict DeploymentValidation) (*EffectResult, error) {
	var result EffectResult
	if err := c.do(ctx, http.MethodPost, "/deployments/"+url.PathEscape(id)+"/validate", nil, verdict, &result); err != nil {
		return nil, fmt.Errorf("validate deployment %s: %w", id, err)
	}

	if !result.Effect.Known() {
		c.logger.Info("platform returned unrecognized validation effect",
			"deployment", id,
			"effect", string(result.Effect),
			"message", result.Message,
		)
	}

	return &result, nil
}

// GetConfigInstance fetches a single config instance.
func (c *Client) GetConfigInstance(ctx context.Context, id string, expand ...string) (*ConfigInstance, error) {
	var instance ConfigInstance
	if err := c.do(ctx, http.MethodGet, "/config_instances/"+url.PathEscape(id), expandQuery(expand), nil, &instance); err != nil {
		return nil, fmt.Errorf("get config instance %s: %w", id, err)
	}
	return &instance, nil
}

// ApproveConfigInstance approves an instance with an operator-facing message.
// The platform answers with the updated instance.
func (c *Client) ApproveConfigInstance(ctx context.Context, id, message string) (*ConfigInstance, error) {
	body := map[string]string{"message": message}
	var instance ConfigInstance
	if err := c.do(ctx, http.MethodPost, "/config_instances/"+url.PathEscape(id)+"/approve", nil, body, &instance); err != nil {
		return nil, fmt.Errorf("approve config instance %s: %w", id, err)
	}
	return &instance, nil
}

// RejectConfigInstance rejects an instance with a message and structured
// findings.
func (c *Client) RejectConfigInstance(ctx context.Context, id, message string, errs []RejectionError) (*ConfigInstance, error) {
	if errs == nil {
		errs = []RejectionError{}
	}
	body := struct {
		Message string           `json:"message"`
		Errors  []RejectionError `json:"errors"`
	}{Message: message, Errors: errs}

	var instance ConfigInstance
	if err := c.do(ctx, http.MethodPost, "/config_instances/"+url.PathEscape(id)+"/reject", nil, body, &instance); err != nil {
		return nil, fmt.Errorf("reject config instance %s: %w", id, err)
	}
	return &instance, nil
}

// DeployConfigInstance asks the platform to roll out an approved instance.
func (c *Client) DeployConfigInstance(ctx context.Context, id string) (*ConfigInstance, error) {
	var instance ConfigInstance
	if err := c.do(ctx, http.MethodPost, "/config_instances/"+url.PathEscape(id)+"/deploy", nil, struct{}{}, &instance); err != nil {
		return nil, fmt.Errorf("deploy config instance %s: %w", id, err)
	}
	return &instance, nil
}

// do runs one API call: marshal body, send with bearer auth, map non-2xx to
// *APIError, decode the response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	c.logger.Debug("platform API call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}

	return nil
}

func expandQuery(expand []string) url.Values {
	if len(expand) == 0 {
		return nil
	}
	return url.Values{"expand": expand}
}
