package platform

import "fmt"

// Effect classifies what a submitted verdict did to the deployment. The
// platform owns the transition; this side only narrates it.
type Effect string

const (
	// EffectNone means the verdict changed nothing.
	EffectNone Effect = "none"

	// EffectStage means approval moved the deployment to staged.
	EffectStage Effect = "stage"

	// EffectDeploy means approval started the rollout.
	EffectDeploy Effect = "deploy"

	// EffectReject means the verdict rejected the deployment.
	EffectReject Effect = "reject"

	// EffectVoid means the deployment was in no state to be validated.
	EffectVoid Effect = "void"
)

// EffectResult is the platform's response to a verdict submission.
type EffectResult struct {
	Effect  Effect `json:"effect"`
	Message string `json:"message"`
}

// Narrative renders the operator-facing line for an effect. Effects outside
// the known set fall through to a generic line, so new platform effects
// degrade to a log entry instead of an error.
func (r EffectResult) Narrative() string {
	switch r.Effect {
	case EffectNone:
		return "The validation had no effect on the deployment: " + r.Message
	case EffectStage:
		return "The deployment was successfully approved; since the deployment required approval to be staged, it is now staged!"
	case EffectDeploy:
		return "The deployment was successfully approved; since the deployment required approval to be deployed, it is now deploying!"
	case EffectReject:
		return "The deployment was successfully rejected!"
	case EffectVoid:
		return "The deployment was in an invalid state for validation: " + r.Message
	default:
		return fmt.Sprintf("Validation effect %q: %s", string(r.Effect), r.Message)
	}
}

// Known reports whether the effect is one of the enumerated outcomes.
func (e Effect) Known() bool {
	switch e {
	case EffectNone, EffectStage, EffectDeploy, EffectReject, EffectVoid:
		return true
	}
	return false
}
