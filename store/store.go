package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/flowgraph/types"
)

// Store is the persistence collaborator for workflows and provider
// credentials.
type Store interface {
	CreateWorkflow(ctx context.Context, wf *types.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*types.Workflow, error)
	ListWorkflows(ctx context.Context) ([]types.Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *types.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
	CloneWorkflow(ctx context.Context, id, name string) (*types.Workflow, error)

	CreateCredential(ctx context.Context, cred *types.ProviderCredential) error
	ListCredentials(ctx context.Context) ([]types.ProviderCredential, error)
	GetCredential(ctx context.Context, provider, userID string) (*types.ProviderCredential, error)

	Close(ctx context.Context) error
}

// prepareWorkflow fills in server-side fields before a create.
func prepareWorkflow(wf *types.Workflow) {
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now
}

// cloneWorkflow derives an independent copy of a workflow: fresh id and
// timestamps, the requested name, and a parent link back to the source.
func cloneWorkflow(src *types.Workflow, name string) *types.Workflow {
	if name == "" {
		name = fmt.Sprintf("Copy of %s", src.Name)
	}
	now := time.Now().UTC()
	clone := *src
	clone.ID = uuid.NewString()
	clone.Name = name
	clone.IsTemplate = false
	clone.ParentWorkflow = src.ID
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.Modules = append([]types.ModuleInstance(nil), src.Modules...)
	clone.Connections = append([]types.Connection(nil), src.Connections...)
	return &clone
}

func notFound(id string) *types.Error {
	return types.NewError(types.ErrWorkflowNotFound,
		fmt.Sprintf("workflow %q not found", id))
}
