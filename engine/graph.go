package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/schema"
	"github.com/BaSui01/flowgraph/types"
)

// Node is one module of an ExecutionGraph: the instance, its resolved
// type, the schema-validated config, and its edges. Incoming connections
// are ordered by target port so input gathering is deterministic.
type Node struct {
	Module   *types.ModuleInstance
	Type     *types.ModuleType
	Config   map[string]any
	Warnings []schema.Warning
	Incoming []types.Connection
	Outgoing []types.Connection
}

// ExecutionGraph is the validated in-memory form of a workflow, keyed by
// module id. It is immutable once built; the scheduler only reads it.
type ExecutionGraph struct {
	workflow *types.Workflow
	nodes    map[string]*Node
}

// Workflow returns the workflow the graph was built from.
func (g *ExecutionGraph) Workflow() *types.Workflow { return g.workflow }

// Node returns the graph node for the given module id.
func (g *ExecutionGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of modules in the graph.
func (g *ExecutionGraph) Len() int { return len(g.nodes) }

// ModuleIDs returns all module ids in ascending order.
func (g *ExecutionGraph) ModuleIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Builder converts stored workflows into execution graphs.
type Builder struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewBuilder creates a graph builder backed by the given registry.
func NewBuilder(reg *registry.Registry, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		reg:    reg,
		logger: logger.With(zap.String("component", "graph_builder")),
	}
}

// Build validates the workflow and produces an ExecutionGraph. Any
// structural or per-module config problem is fatal; execution of an
// invalid workflow never starts.
func (b *Builder) Build(wf *types.Workflow) (*ExecutionGraph, error) {
	g := &ExecutionGraph{
		workflow: wf,
		nodes:    make(map[string]*Node, len(wf.Modules)),
	}

	for i := range wf.Modules {
		mod := &wf.Modules[i]
		mt, err := b.reg.Resolve(mod.Type)
		if err != nil {
			if e, ok := err.(*types.Error); ok {
				return nil, e.WithModule(mod.ID)
			}
			return nil, err
		}

		cfg, warnings, err := schema.Validate(mt.ConfigSchema, mod.Config)
		if err != nil {
			if e, ok := err.(*types.Error); ok {
				return nil, e.WithModule(mod.ID)
			}
			return nil, err
		}
		for _, w := range warnings {
			b.logger.Warn("unknown config field",
				zap.String("module_id", mod.ID),
				zap.String("field", w.Field),
			)
		}

		g.nodes[mod.ID] = &Node{
			Module:   mod,
			Type:     mt,
			Config:   cfg,
			Warnings: warnings,
		}
	}

	if err := b.wireConnections(g, wf.Connections); err != nil {
		return nil, err
	}
	if err := detectCycle(g); err != nil {
		return nil, err
	}

	b.logger.Debug("graph built",
		zap.String("workflow_id", wf.ID),
		zap.Int("modules", len(g.nodes)),
		zap.Int("connections", len(wf.Connections)),
	)
	return g, nil
}

// wireConnections attaches edges to nodes, rejecting dangling references
// and input ports with more than one incoming connection.
func (b *Builder) wireConnections(g *ExecutionGraph, conns []types.Connection) error {
	fanIn := make(map[string]string) // "moduleID\x00port" -> connection id

	for _, conn := range conns {
		src, ok := g.nodes[conn.Source]
		if !ok {
			return types.NewError(types.ErrDanglingConnection,
				fmt.Sprintf("connection %q references missing source module %q", conn.ID, conn.Source))
		}
		dst, ok := g.nodes[conn.Target]
		if !ok {
			return types.NewError(types.ErrDanglingConnection,
				fmt.Sprintf("connection %q references missing target module %q", conn.ID, conn.Target))
		}

		port := conn.TargetPort
		if port == "" {
			port = dst.Type.DefaultInputPort()
		}
		key := conn.Target + "\x00" + port
		if prev, exists := fanIn[key]; exists {
			return types.NewError(types.ErrFanInViolation,
				fmt.Sprintf("input port %q of module %q has connections %q and %q; at most one is allowed",
					port, conn.Target, prev, conn.ID)).
				WithModule(conn.Target).WithField(port)
		}
		fanIn[key] = conn.ID

		src.Outgoing = append(src.Outgoing, conn)
		dst.Incoming = append(dst.Incoming, conn)
	}

	for _, n := range g.nodes {
		sort.Slice(n.Incoming, func(i, j int) bool {
			return n.Incoming[i].TargetPort < n.Incoming[j].TargetPort
		})
		sort.Slice(n.Outgoing, func(i, j int) bool {
			if n.Outgoing[i].Target != n.Outgoing[j].Target {
				return n.Outgoing[i].Target < n.Outgoing[j].Target
			}
			return n.Outgoing[i].TargetPort < n.Outgoing[j].TargetPort
		})
	}
	return nil
}

// detectCycle runs a depth-first search over the graph and reports a
// concrete cycle, naming its module ids, when one exists.
func detectCycle(g *ExecutionGraph) error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		stack = append(stack, id)
		for _, conn := range g.nodes[id].Outgoing {
			switch color[conn.Target] {
			case white:
				if cycle := visit(conn.Target); cycle != nil {
					return cycle
				}
			case grey:
				// Back edge: the cycle is the stack suffix starting at
				// the target.
				for i, sid := range stack {
					if sid == conn.Target {
						return append([]string(nil), stack[i:]...)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.ModuleIDs() {
		if color[id] != white {
			continue
		}
		stack = stack[:0]
		if cycle := visit(id); cycle != nil {
			return types.NewError(types.ErrCycleDetected,
				fmt.Sprintf("workflow contains a cycle: %s", strings.Join(cycle, " -> ")))
		}
	}
	return nil
}
