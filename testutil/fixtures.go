package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/flowgraph/types"
)

// TestContext returns a context that is cancelled when the test ends,
// bounded at 30 seconds.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext returns an already cancelled context.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// Module builds a module instance for a test graph.
func Module(id, typeID string, config map[string]any) types.ModuleInstance {
	return types.ModuleInstance{ID: id, Type: typeID, Config: config}
}

// Connect builds a default-port connection from source to target.
func Connect(id, source, target string) types.Connection {
	return types.Connection{ID: id, Source: source, Target: target}
}

// ConnectPorts builds a connection with explicit port names.
func ConnectPorts(id, source, sourcePort, target, targetPort string) types.Connection {
	return types.Connection{
		ID: id, Source: source, SourcePort: sourcePort,
		Target: target, TargetPort: targetPort,
	}
}

// Workflow assembles a named workflow from modules and connections.
func Workflow(name string, modules []types.ModuleInstance, conns []types.Connection) *types.Workflow {
	return &types.Workflow{Name: name, Modules: modules, Connections: conns}
}

// GreetingPipeline is the canonical three-module graph: a text input
// feeding an AI module feeding a text output. The AI module targets the
// stub provider and echoes its input.
func GreetingPipeline() *types.Workflow {
	return Workflow("greeting pipeline",
		[]types.ModuleInstance{
			Module("in1", "text-input", nil),
			Module("ai1", "openai-text", map[string]any{
				"provider": "stub",
				"prompt":   "{{x}}",
			}),
			Module("out1", "text-output", nil),
		},
		[]types.Connection{
			Connect("c1", "in1", "ai1"),
			Connect("c2", "ai1", "out1"),
		},
	)
}

// BranchingWorkflow routes a text input through a conditional whose true
// and false branches feed separate outputs.
func BranchingWorkflow(condition string) *types.Workflow {
	return Workflow("branching",
		[]types.ModuleInstance{
			Module("in1", "text-input", nil),
			Module("cond", "conditional", map[string]any{"condition": condition}),
			Module("yes", "text-output", nil),
			Module("no", "text-output", nil),
		},
		[]types.Connection{
			Connect("c1", "in1", "cond"),
			ConnectPorts("c2", "cond", "true", "yes", ""),
			ConnectPorts("c3", "cond", "false", "no", ""),
		},
	)
}
