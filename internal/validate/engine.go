// Package validate builds deployment verdicts from config instance content.
//
// The engine walks every config instance in a deployment, applies an
// InstanceRule to each, and aggregates the per-instance results into a
// single DeploymentValidation through a Policy. Both the rule and the
// policy are pluggable so organizations can swap in their own checks
// without touching the webhook or platform plumbing.
//
// Validation is pure: the engine never calls out to the network and never
// mutates its input. Missing content is a precondition failure, not a
// validation failure. A deployment snapshot fetched without expanded
// content means the upstream fetch was incomplete, and treating it as
// "valid" would silently approve configs nobody inspected.
package validate

import (
	"bytes"

	"github.com/mattjoyce/palisade/internal/platform"
)

// InstanceRule inspects a single config instance and reports any failing
// parameters. Implementations may assume Content is present and non-null;
// the engine enforces that before any rule runs.
type InstanceRule func(platform.ConfigInstance) platform.ConfigInstanceValidation

// Policy derives the deployment-level verdict from the per-instance results.
type Policy func([]platform.ConfigInstanceValidation) (valid bool, message string)

// Engine validates deployments instance by instance.
type Engine struct {
	rule   InstanceRule
	policy Policy
}

// NewEngine builds an engine from a rule and a policy. Nil arguments fall
// back to NullParameterRule and DefaultPolicy.
func NewEngine(rule InstanceRule, policy Policy) *Engine {
	if rule == nil {
		rule = NullParameterRule
	}
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Engine{rule: rule, policy: policy}
}

// Validate produces the deployment verdict for a sequence of config
// instances. The output preserves input order.
//
// Every instance must carry non-null content. If any does not, Validate
// returns a *platform.MissingExpandError and a zero verdict; no partial
// verdict is ever constructed.
func (e *Engine) Validate(instances []platform.ConfigInstance) (platform.DeploymentValidation, error) {
	for _, instance := range instances {
		if contentAbsent(instance.Content) {
			return platform.DeploymentValidation{}, &platform.MissingExpandError{
				Entity: "config instance",
				ID:     instance.ID,
				Field:  "content",
			}
		}
	}

	results := make([]platform.ConfigInstanceValidation, 0, len(instances))
	for _, instance := range instances {
		results = append(results, e.runRule(instance))
	}

	valid, message := e.policy(results)
	return platform.DeploymentValidation{
		IsValid:         valid,
		Message:         message,
		ConfigInstances: results,
	}, nil
}

// ValidateInstance applies the precondition check and the rule to one
// config instance, outside the context of a deployment.
func (e *Engine) ValidateInstance(instance platform.ConfigInstance) (platform.ConfigInstanceValidation, error) {
	if contentAbsent(instance.Content) {
		return platform.ConfigInstanceValidation{}, &platform.MissingExpandError{
			Entity: "config instance",
			ID:     instance.ID,
			Field:  "content",
		}
	}
	return e.runRule(instance), nil
}

// runRule invokes the rule and normalizes its output so verdicts always
// serialize with an id and a parameters array, never null.
func (e *Engine) runRule(instance platform.ConfigInstance) platform.ConfigInstanceValidation {
	result := e.rule(instance)
	if result.ID == "" {
		result.ID = instance.ID
	}
	if result.Parameters == nil {
		result.Parameters = []platform.ParameterValidation{}
	}
	return result
}

func contentAbsent(content []byte) bool {
	return len(content) == 0 || bytes.Equal(content, []byte("null"))
}
