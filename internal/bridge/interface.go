package bridge

import (
	"context"

	"github.com/mattjoyce/palisade/internal/platform"
)

//go:generate mockgen -destination=mocks/mock_platform.go -package=mocks github.com/mattjoyce/palisade/internal/bridge PlatformAPI

// PlatformAPI defines the interface for platform operations used by the bridge handlers.
type PlatformAPI interface {
	GetDeployment(ctx context.Context, id string, expand ...string) (*platform.Deployment, error)
	ValidateDeployment(ctx context.Context, id string, verdict platform.DeploymentValidation) (*platform.EffectResult, error)
	GetConfigInstance(ctx context.Context, id string, expand ...string) (*platform.ConfigInstance, error)
	ApproveConfigInstance(ctx context.Context, id, message string) (*platform.ConfigInstance, error)
	RejectConfigInstance(ctx context.Context, id, message string, errs []platform.RejectionError) (*platform.ConfigInstance, error)
	DeployConfigInstance(ctx context.Context, id string) (*platform.ConfigInstance, error)
}
