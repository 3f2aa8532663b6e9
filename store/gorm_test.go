package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenGorm("sqlite", ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func sampleWorkflow() *types.Workflow {
	return &types.Workflow{
		Name:        "greeting pipeline",
		Description: "input to AI to output",
		Modules: []types.ModuleInstance{
			{ID: "in1", Type: "text-input", Position: types.Position{X: 10, Y: 20}},
			{ID: "ai1", Type: "openai-text", Config: map[string]any{"provider": "openai", "temperature": 0.5}},
			{ID: "out1", Type: "text-output", Position: types.Position{X: 300, Y: 20}},
		},
		Connections: []types.Connection{
			{ID: "c1", Source: "in1", Target: "ai1"},
			{ID: "c2", Source: "ai1", Target: "out1"},
		},
	}
}

func TestGormStore_WorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	wf := sampleWorkflow()
	require.NoError(t, s.CreateWorkflow(ctx, wf))
	require.NotEmpty(t, wf.ID)
	require.False(t, wf.CreatedAt.IsZero())

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.Name, got.Name)
	assert.Equal(t, wf.Modules, got.Modules)
	assert.Equal(t, wf.Connections, got.Connections)
	// Positions and open config maps survive the round trip.
	assert.Equal(t, types.Position{X: 10, Y: 20}, got.Modules[0].Position)
	assert.Equal(t, 0.5, got.Modules[1].Config["temperature"])
}

func TestGormStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.GetWorkflow(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, types.ErrWorkflowNotFound, types.GetErrorCode(err))
}

func TestGormStore_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	wf := sampleWorkflow()
	require.NoError(t, s.CreateWorkflow(ctx, wf))

	wf.Name = "renamed"
	wf.Modules = wf.Modules[:1]
	require.NoError(t, s.UpdateWorkflow(ctx, wf))

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Len(t, got.Modules, 1)

	missing := sampleWorkflow()
	missing.ID = "ghost"
	err = s.UpdateWorkflow(ctx, missing)
	require.Error(t, err)
	assert.Equal(t, types.ErrWorkflowNotFound, types.GetErrorCode(err))
}

func TestGormStore_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	wf := sampleWorkflow()
	require.NoError(t, s.CreateWorkflow(ctx, wf))
	require.NoError(t, s.DeleteWorkflow(ctx, wf.ID))

	_, err := s.GetWorkflow(ctx, wf.ID)
	require.Error(t, err)

	err = s.DeleteWorkflow(ctx, wf.ID)
	require.Error(t, err)
	assert.Equal(t, types.ErrWorkflowNotFound, types.GetErrorCode(err))
}

func TestGormStore_ListWorkflows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	first := sampleWorkflow()
	require.NoError(t, s.CreateWorkflow(ctx, first))
	second := sampleWorkflow()
	second.Name = "second"
	require.NoError(t, s.CreateWorkflow(ctx, second))

	all, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormStore_CloneWorkflow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	src := sampleWorkflow()
	src.IsTemplate = true
	require.NoError(t, s.CreateWorkflow(ctx, src))

	clone, err := s.CloneWorkflow(ctx, src.ID, "my copy")
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, "my copy", clone.Name)
	assert.Equal(t, src.ID, clone.ParentWorkflow)
	assert.False(t, clone.IsTemplate)
	assert.Equal(t, src.Modules, clone.Modules)

	// The clone is persisted independently.
	got, err := s.GetWorkflow(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, "my copy", got.Name)

	// Default name when none is given.
	unnamed, err := s.CloneWorkflow(ctx, src.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Copy of greeting pipeline", unnamed.Name)
}

func TestGormStore_Credentials(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCredential(ctx, &types.ProviderCredential{
		Provider: "openai", APIKey: "sk-1", UserID: "u1",
	}))
	require.NoError(t, s.CreateCredential(ctx, &types.ProviderCredential{
		Provider: "anthropic", APIKey: "sk-2", UserID: "u1",
	}))

	all, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cred, err := s.GetCredential(ctx, "openai", "u1")
	require.NoError(t, err)
	assert.Equal(t, "sk-1", cred.APIKey)

	_, err = s.GetCredential(ctx, "mistral", "u1")
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
}
