package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/store"
	"github.com/BaSui01/flowgraph/types"
)

// Handler serves the flowgraph API.
type Handler struct {
	store  store.Store
	engine *engine.Engine
	reg    *registry.Registry
	logger *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(st store.Store, eng *engine.Engine, reg *registry.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  st,
		engine: eng,
		reg:    reg,
		logger: logger.With(zap.String("component", "api")),
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/{$}", h.HandleWelcome)
	mux.HandleFunc("GET /api/module-types", h.HandleListModuleTypes)

	mux.HandleFunc("POST /api/workflows", h.HandleCreateWorkflow)
	mux.HandleFunc("GET /api/workflows", h.HandleListWorkflows)
	mux.HandleFunc("GET /api/workflows/{id}", h.HandleGetWorkflow)
	mux.HandleFunc("PUT /api/workflows/{id}", h.HandleUpdateWorkflow)
	mux.HandleFunc("DELETE /api/workflows/{id}", h.HandleDeleteWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/clone", h.HandleCloneWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/validate", h.HandleValidateWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/execute", h.HandleExecuteWorkflow)

	mux.HandleFunc("POST /api/ai-providers", h.HandleCreateCredential)
	mux.HandleFunc("GET /api/ai-providers", h.HandleListCredentials)
}

// HandleWelcome GET /api/
func (h *Handler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{
		"service": "flowgraph",
		"message": "Welcome to the AI Workflow API",
		"endpoints": []string{
			"GET /api/module-types",
			"GET /api/workflows",
			"POST /api/workflows",
			"GET /api/workflows/{id}",
			"PUT /api/workflows/{id}",
			"DELETE /api/workflows/{id}",
			"POST /api/workflows/{id}/clone",
			"POST /api/workflows/{id}/validate",
			"POST /api/workflows/{id}/execute",
			"GET /api/ai-providers",
			"POST /api/ai-providers",
		},
	})
}

// HandleListModuleTypes GET /api/module-types
func (h *Handler) HandleListModuleTypes(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.reg.Types())
}

// HandleCreateWorkflow POST /api/workflows
//
// Drafts are legal: the graph is validated at execute time, not here, so
// the editor can save incomplete workflows.
func (h *Handler) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf types.Workflow
	if err := DecodeJSONBody(w, r, &wf, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(wf.Name) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow name is required", h.logger)
		return
	}

	if err := h.store.CreateWorkflow(r.Context(), &wf); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow created",
		zap.String("workflow_id", wf.ID),
		zap.Int("modules", len(wf.Modules)),
	)
	WriteCreated(w, wf)
}

// HandleListWorkflows GET /api/workflows
func (h *Handler) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListWorkflows(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, all)
}

// HandleGetWorkflow GET /api/workflows/{id}
func (h *Handler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.store.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, wf)
}

// HandleUpdateWorkflow PUT /api/workflows/{id}
func (h *Handler) HandleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf types.Workflow
	if err := DecodeJSONBody(w, r, &wf, h.logger); err != nil {
		return
	}
	// The path wins over any id in the body.
	wf.ID = r.PathValue("id")
	if strings.TrimSpace(wf.Name) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow name is required", h.logger)
		return
	}

	if err := h.store.UpdateWorkflow(r.Context(), &wf); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, wf)
}

// HandleDeleteWorkflow DELETE /api/workflows/{id}
func (h *Handler) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteWorkflow(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"message": "workflow deleted", "id": id})
}

type cloneRequest struct {
	Name string `json:"name"`
}

// HandleCloneWorkflow POST /api/workflows/{id}/clone
func (h *Handler) HandleCloneWorkflow(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	// An empty body clones with the default "Copy of" name.
	if r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}

	clone, err := h.store.CloneWorkflow(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, clone)
}

// HandleValidateWorkflow POST /api/workflows/{id}/validate
func (h *Handler) HandleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.store.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := h.engine.Validate(wf); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{"valid": true})
}

type executeRequest struct {
	// Inputs binds runtime values to Input module ids.
	Inputs map[string]any `json:"inputs,omitempty"`
	// UserID selects stored per-user provider credentials for this run.
	// Provider names which provider's credential to load.
	UserID   string `json:"user_id,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// HandleExecuteWorkflow POST /api/workflows/{id}/execute
func (h *Handler) HandleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}

	ctx := r.Context()
	if req.UserID != "" {
		if req.Provider == "" {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
				"provider is required when user_id is set", h.logger)
			return
		}
		cred, err := h.store.GetCredential(ctx, req.Provider, req.UserID)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		ctx = provider.WithCredentialOverride(ctx, provider.CredentialOverride{APIKey: cred.APIKey})
	}

	result, err := h.engine.Execute(ctx, r.PathValue("id"), req.Inputs)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow executed",
		zap.String("workflow_id", result.WorkflowID),
		zap.String("run_id", result.RunID),
		zap.Bool("succeeded", result.Succeeded()),
	)
	WriteSuccess(w, result)
}

type createCredentialRequest struct {
	Provider string `json:"name"`
	APIKey   string `json:"api_key"`
	UserID   string `json:"user_id"`
}

// credentialResponse carries a stored credential with the key masked.
type credentialResponse struct {
	ID       string `json:"id"`
	Provider string `json:"name"`
	APIKey   string `json:"api_key"`
	UserID   string `json:"user_id"`
}

func maskAPIKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func toCredentialResponse(c types.ProviderCredential) credentialResponse {
	return credentialResponse{
		ID:       c.ID,
		Provider: c.Provider,
		APIKey:   maskAPIKey(c.APIKey),
		UserID:   c.UserID,
	}
}

// HandleCreateCredential POST /api/ai-providers
func (h *Handler) HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Provider) == "" || strings.TrimSpace(req.APIKey) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"name and api_key are required", h.logger)
		return
	}

	cred := types.ProviderCredential{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		UserID:   req.UserID,
	}
	if err := h.store.CreateCredential(r.Context(), &cred); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, toCredentialResponse(cred))
}

// HandleListCredentials GET /api/ai-providers
//
// An optional user_id query parameter narrows the listing to one user's
// credentials.
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.ListCredentials(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	userID := r.URL.Query().Get("user_id")
	resp := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		if userID != "" && c.UserID != userID {
			continue
		}
		resp = append(resp, toCredentialResponse(c))
	}
	WriteSuccess(w, resp)
}
