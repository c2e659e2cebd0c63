package platform

import (
	"encoding/json"
	"fmt"
)

// Deployment is a platform deployment snapshot. Device, Release and
// ConfigInstances are populated only when the fetch requested them expanded;
// otherwise they stay nil.
type Deployment struct {
	ID              string           `json:"id"`
	Status          string           `json:"status,omitempty"`
	Device          *Device          `json:"device,omitempty"`
	Release         *Release         `json:"release,omitempty"`
	ConfigInstances []ConfigInstance `json:"config_instances,omitempty"`
}

// Device is the target device of a deployment.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Release is the release a deployment rolls out.
type Release struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// ConfigInstance is one configuration instance attached to a deployment.
// Content is nil unless the fetch expanded it.
type ConfigInstance struct {
	ID           string          `json:"id"`
	Status       string          `json:"status,omitempty"`
	TargetStatus string          `json:"target_status,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
}

// DeploymentValidation is the verdict submitted back to the platform after
// validating a deployment's config instances.
type DeploymentValidation struct {
	IsValid         bool                       `json:"is_valid"`
	Message         string                     `json:"message"`
	ConfigInstances []ConfigInstanceValidation `json:"config_instances"`
}

// ConfigInstanceValidation is the per-instance portion of a verdict. An
// instance with no Parameters passed validation; Message is shown at the
// config instance level in the platform UI.
type ConfigInstanceValidation struct {
	ID         string                `json:"id"`
	Message    string                `json:"message"`
	Parameters []ParameterValidation `json:"parameters"`
}

// ParameterValidation names one problem inside a config instance's content.
// Path addresses the offending parameter as an ordered sequence of object
// keys and array indices.
type ParameterValidation struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// RejectionError is one structured finding attached to a config instance
// rejection. It mirrors ParameterValidation's shape under the field names
// the rejection endpoint expects.
type RejectionError struct {
	Message       string   `json:"message"`
	ParameterPath []string `json:"parameter_path"`
}

// MissingExpandError reports an entity that came back without a field the
// caller required expanded. It means the upstream fetch was incomplete, not
// that the configuration is invalid, so it must never soften into a verdict.
type MissingExpandError struct {
	Entity string
	ID     string
	Field  string
}

func (e *MissingExpandError) Error() string {
	return fmt.Sprintf("%s %s is missing expanded field %q", e.Entity, e.ID, e.Field)
}

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error: status %d: %s", e.StatusCode, e.Body)
}
