package types

import "time"

// Position represents a module's location on the editor canvas.
// Execution ignores it; it is carried only for round-trip fidelity.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ModuleInstance is one node of a workflow: an instance of a ModuleType
// with its own configuration. Config is an open mapping validated against
// the type's declared schema at graph-build time.
type ModuleInstance struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Position Position       `json:"position"`
}

// Connection is a directed edge carrying a single value from one module's
// output port to another module's input port. Port names are optional; an
// empty name addresses the module's default port.
type Connection struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SourcePort string `json:"source_port,omitempty"`
	Target     string `json:"target"`
	TargetPort string `json:"target_port,omitempty"`
}

// Workflow is a stored graph of modules and connections.
type Workflow struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Modules        []ModuleInstance `json:"modules"`
	Connections    []Connection     `json:"connections"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CreatedBy      string           `json:"created_by,omitempty"`
	IsTemplate     bool             `json:"is_template,omitempty"`
	ParentWorkflow string           `json:"parent_workflow,omitempty"`
}

// Module returns the module instance with the given id, if present.
func (w *Workflow) Module(id string) (*ModuleInstance, bool) {
	for i := range w.Modules {
		if w.Modules[i].ID == id {
			return &w.Modules[i], true
		}
	}
	return nil, false
}

// ProviderCredential stores an API key for one AI provider, owned by one
// user. Keys are injected into the engine by the credential resolver and
// never embedded in workflow records.
type ProviderCredential struct {
	ID       string `json:"id"`
	Provider string `json:"name"`
	APIKey   string `json:"api_key"`
	UserID   string `json:"user_id"`
}
