package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/store"
	"github.com/BaSui01/flowgraph/testutil"
	"github.com/BaSui01/flowgraph/types"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func newTestAPI(t *testing.T) (*http.ServeMux, store.Store) {
	t.Helper()

	st, err := store.OpenGorm("sqlite", ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	providers := provider.NewRegistry()
	providers.Register("stub", provider.NewStub())

	reg := registry.NewWithCatalog(zap.NewNop())
	eng := engine.New(engine.Config{}, reg, st, providers, nil, zap.NewNop())

	mux := http.NewServeMux()
	NewHandler(st, eng, reg, zap.NewNop()).Register(mux)
	return mux, st
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func pipelineWorkflow() *types.Workflow {
	return testutil.GreetingPipeline()
}

func TestHandleWelcome(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	rec, env := doRequest(t, mux, http.MethodGet, "/api/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "flowgraph")
}

func TestHandleListModuleTypes(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	rec, env := doRequest(t, mux, http.MethodGet, "/api/module-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []types.ModuleType
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	assert.Len(t, catalog, 9)

	ids := make(map[string]types.Category, len(catalog))
	for _, mt := range catalog {
		ids[mt.ID] = mt.Category
	}
	assert.Equal(t, types.CategoryInput, ids["text-input"])
	assert.Equal(t, types.CategoryAIModel, ids["openai-text"])
	assert.Equal(t, types.CategoryLogic, ids["conditional"])
	assert.Equal(t, types.CategoryOutput, ids["text-output"])
}

func TestHandleCreateWorkflow(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows", pipelineWorkflow())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Len(t, created.Modules, 3)
}

func TestHandleCreateWorkflow_MissingName(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	wf := pipelineWorkflow()
	wf.Name = "  "
	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows", wf)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
}

func TestHandleCreateWorkflow_InvalidJSON(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/workflows", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetWorkflow_NotFound(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	rec, env := doRequest(t, mux, http.MethodGet, "/api/workflows/ghost", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrWorkflowNotFound), env.Error.Code)
}

func TestWorkflowCRUDRoundTrip(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)

	_, env := doRequest(t, mux, http.MethodPost, "/api/workflows", pipelineWorkflow())
	var created types.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env := doRequest(t, mux, http.MethodGet, "/api/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.Name, got.Name)

	got.Name = "renamed"
	rec, _ = doRequest(t, mux, http.MethodPut, "/api/workflows/"+created.ID, got)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = doRequest(t, mux, http.MethodGet, "/api/workflows/"+created.ID, nil)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "renamed", got.Name)

	rec, env = doRequest(t, mux, http.MethodGet, "/api/workflows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []types.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	rec, _ = doRequest(t, mux, http.MethodDelete, "/api/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, mux, http.MethodGet, "/api/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCloneWorkflow(t *testing.T) {
	t.Parallel()

	mux, st := newTestAPI(t)
	src := pipelineWorkflow()
	require.NoError(t, st.CreateWorkflow(context.Background(), src))

	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows/"+src.ID+"/clone", cloneRequest{Name: "my copy"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var clone types.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &clone))
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, "my copy", clone.Name)
	assert.Equal(t, src.ID, clone.ParentWorkflow)

	// Empty body yields the default derived name.
	rec, env = doRequest(t, mux, http.MethodPost, "/api/workflows/"+src.ID+"/clone", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &clone))
	assert.Equal(t, "Copy of greeting pipeline", clone.Name)
}

func TestHandleValidateWorkflow(t *testing.T) {
	t.Parallel()

	mux, st := newTestAPI(t)

	valid := pipelineWorkflow()
	require.NoError(t, st.CreateWorkflow(context.Background(), valid))
	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows/"+valid.ID+"/validate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	cyclic := &types.Workflow{
		Name: "ouroboros",
		Modules: []types.ModuleInstance{
			{ID: "a", Type: "transform"},
			{ID: "b", Type: "transform"},
		},
		Connections: []types.Connection{
			{ID: "c1", Source: "a", Target: "b"},
			{ID: "c2", Source: "b", Target: "a"},
		},
	}
	require.NoError(t, st.CreateWorkflow(context.Background(), cyclic))

	rec, env = doRequest(t, mux, http.MethodPost, "/api/workflows/"+cyclic.ID+"/validate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
}

func TestHandleExecuteWorkflow(t *testing.T) {
	t.Parallel()

	mux, st := newTestAPI(t)
	wf := pipelineWorkflow()
	require.NoError(t, st.CreateWorkflow(context.Background(), wf))

	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", executeRequest{
		Inputs: map[string]any{"in1": "hello"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, wf.ID, result.WorkflowID)
	assert.Equal(t, map[string]any{"out1": "hello"}, result.Outputs)
	for id, status := range result.Statuses {
		assert.Equal(t, engine.StateSucceeded, status.State, "module %s", id)
	}
}

func TestHandleExecuteWorkflow_NotFound(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)
	rec, _ := doRequest(t, mux, http.MethodPost, "/api/workflows/ghost/execute", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleExecuteWorkflow_CredentialResolution(t *testing.T) {
	t.Parallel()

	mux, st := newTestAPI(t)
	wf := pipelineWorkflow()
	require.NoError(t, st.CreateWorkflow(context.Background(), wf))

	// user_id without provider is rejected.
	rec, env := doRequest(t, mux, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", executeRequest{
		UserID: "u1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)

	// No stored credential for the pair.
	rec, env = doRequest(t, mux, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", executeRequest{
		UserID: "u1", Provider: "stub",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrMissingCredentials), env.Error.Code)

	// With a stored credential the run proceeds. The stub ignores keys,
	// so success is the observable outcome.
	require.NoError(t, st.CreateCredential(context.Background(), &types.ProviderCredential{
		Provider: "stub", APIKey: "sk-user", UserID: "u1",
	}))
	rec, _ = doRequest(t, mux, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", executeRequest{
		Inputs: map[string]any{"in1": "hi"}, UserID: "u1", Provider: "stub",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialEndpoints(t *testing.T) {
	t.Parallel()

	mux, _ := newTestAPI(t)

	rec, env := doRequest(t, mux, http.MethodPost, "/api/ai-providers", createCredentialRequest{
		Provider: "openai", APIKey: "sk-supersecret-1234", UserID: "u1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created credentialResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "openai", created.Provider)
	// Only the last four characters survive masking.
	assert.NotContains(t, created.APIKey, "supersecret")
	assert.Contains(t, created.APIKey, "1234")

	rec, env = doRequest(t, mux, http.MethodGet, "/api/ai-providers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []credentialResponse
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	assert.NotContains(t, all[0].APIKey, "supersecret")

	// Missing fields are rejected.
	rec, _ = doRequest(t, mux, http.MethodPost, "/api/ai-providers", createCredentialRequest{
		Provider: "openai",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListCredentials_UserFilter(t *testing.T) {
	t.Parallel()

	mux, st := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, st.CreateCredential(ctx, &types.ProviderCredential{
		Provider: "openai", APIKey: "sk-alpha", UserID: "u1",
	}))
	require.NoError(t, st.CreateCredential(ctx, &types.ProviderCredential{
		Provider: "anthropic", APIKey: "sk-beta", UserID: "u2",
	}))

	rec, env := doRequest(t, mux, http.MethodGet, "/api/ai-providers?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered []credentialResponse
	require.NoError(t, json.Unmarshal(env.Data, &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, "openai", filtered[0].Provider)
	assert.Equal(t, "u1", filtered[0].UserID)

	// No filter returns everything; an unknown user matches nothing.
	rec, env = doRequest(t, mux, http.MethodGet, "/api/ai-providers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []credentialResponse
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 2)

	_, env = doRequest(t, mux, http.MethodGet, "/api/ai-providers?user_id=ghost", nil)
	var none []credentialResponse
	require.NoError(t, json.Unmarshal(env.Data, &none))
	assert.Empty(t, none)
}

func TestMaskAPIKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"abcd", "****"},
		{"sk-12345678", "*******5678"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.key), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, maskAPIKey(tc.key))
		})
	}
}
