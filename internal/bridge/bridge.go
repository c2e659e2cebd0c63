// Package bridge connects verified webhook events to platform decisions.
//
// Each handler owns one event tag end to end: it fetches the affected
// entity from the platform with the expansions it needs, runs the
// validation engine over the config content, and reports the outcome back
// through the platform API. Handlers are synchronous; a failed outbound
// call fails the delivery and is left to the platform's retry policy.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/palisade/internal/event"
	"github.com/mattjoyce/palisade/internal/platform"
	"github.com/mattjoyce/palisade/internal/validate"
)

// Event tags the bridge handles. Deliveries with any other tag are
// acknowledged by the dispatcher as no-ops.
const (
	EventDeploymentValidate    = "deployment.validate"
	EventInstanceStatusChanged = "config_instance.status_changed"
)

// Bridge binds event tags to platform calls.
type Bridge struct {
	api    PlatformAPI
	engine *validate.Engine
	logger *slog.Logger
}

// New creates a bridge over the given platform API and validation engine.
func New(api PlatformAPI, engine *validate.Engine, logger *slog.Logger) *Bridge {
	return &Bridge{
		api:    api,
		engine: engine,
		logger: logger,
	}
}

// RegisterHandlers binds the supported event tags on the dispatcher.
func (b *Bridge) RegisterHandlers(d *event.Dispatcher) {
	d.Register(EventDeploymentValidate, b.HandleDeploymentValidate)
	d.Register(EventInstanceStatusChanged, b.HandleConfigInstanceStatusChanged)
}

// HandleDeploymentValidate runs the deployment validation flow: fetch the
// expanded deployment, build a verdict over its config instances, submit
// the verdict, and interpret the effect the platform answers with.
//
// A deployment fetched without its release, device, or config instances is
// a precondition failure. The upstream expand did not return what this
// flow requires, and validating a partial snapshot could approve configs
// nobody inspected.
func (b *Bridge) HandleDeploymentValidate(ctx context.Context, data json.RawMessage) (string, error) {
	var payload struct {
		Deployment struct {
			ID string `json:"id"`
		} `json:"deployment"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode %s data: %w", EventDeploymentValidate, err)
	}
	if payload.Deployment.ID == "" {
		return "", &event.ParseError{Reason: "event data has no deployment id"}
	}

	deployment, err := b.api.GetDeployment(ctx, payload.Deployment.ID,
		platform.ExpandDevice, platform.ExpandRelease, platform.ExpandInstanceContent)
	if err != nil {
		return "", err
	}

	if deployment.Release == nil {
		return "", &platform.MissingExpandError{Entity: "deployment", ID: deployment.ID, Field: "release"}
	}
	if deployment.ConfigInstances == nil {
		return "", &platform.MissingExpandError{Entity: "deployment", ID: deployment.ID, Field: "config_instances"}
	}
	if deployment.Device == nil {
		return "", &platform.MissingExpandError{Entity: "deployment", ID: deployment.ID, Field: "device"}
	}

	b.logger.Info("Validating deployment",
		"deployment_id", deployment.ID,
		"device", deployment.Device.Name,
		"release", deployment.Release.Version,
		"config_instances", len(deployment.ConfigInstances),
	)

	verdict, err := b.engine.Validate(deployment.ConfigInstances)
	if err != nil {
		return "", err
	}

	result, err := b.api.ValidateDeployment(ctx, deployment.ID, verdict)
	if err != nil {
		return "", err
	}

	b.logger.Info(result.Narrative(),
		"deployment_id", deployment.ID,
		"effect", string(result.Effect),
		"is_valid", verdict.IsValid,
	)

	return "deployment validation handled successfully", nil
}

// HandleConfigInstanceStatusChanged validates a single config instance and
// takes a binary decision: approve then deploy when the content passes, or
// reject with structured findings when it does not. Exactly one of the two
// runs per event, never both.
func (b *Bridge) HandleConfigInstanceStatusChanged(ctx context.Context, data json.RawMessage) (string, error) {
	var payload struct {
		ConfigInstance struct {
			ID string `json:"id"`
		} `json:"config_instance"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode %s data: %w", EventInstanceStatusChanged, err)
	}
	if payload.ConfigInstance.ID == "" {
		return "", &event.ParseError{Reason: "event data has no config instance id"}
	}

	instance, err := b.api.GetConfigInstance(ctx, payload.ConfigInstance.ID, platform.ExpandContent)
	if err != nil {
		return "", err
	}

	result, err := b.engine.ValidateInstance(*instance)
	if err != nil {
		return "", err
	}

	if len(result.Parameters) == 0 {
		return b.approveAndDeploy(ctx, instance.ID)
	}
	return b.reject(ctx, instance.ID, result)
}

func (b *Bridge) approveAndDeploy(ctx context.Context, id string) (string, error) {
	if _, err := b.api.ApproveConfigInstance(ctx, id, "config instance content passed validation"); err != nil {
		return "", err
	}

	deployed, err := b.api.DeployConfigInstance(ctx, id)
	if err != nil {
		return "", err
	}

	b.logger.Info("Config instance approved and deploying",
		"config_instance_id", id,
		"status", deployed.Status,
	)
	return "config instance approved and deploy requested", nil
}

func (b *Bridge) reject(ctx context.Context, id string, result platform.ConfigInstanceValidation) (string, error) {
	errs := make([]platform.RejectionError, 0, len(result.Parameters))
	for _, p := range result.Parameters {
		errs = append(errs, platform.RejectionError{
			Message:       p.Message,
			ParameterPath: p.Path,
		})
	}

	if _, err := b.api.RejectConfigInstance(ctx, id, result.Message, errs); err != nil {
		return "", err
	}

	b.logger.Warn("Config instance rejected",
		"config_instance_id", id,
		"findings", len(errs),
	)
	return "config instance rejected", nil
}
