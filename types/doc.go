// Package types defines the shared data model of the flowgraph engine:
// workflows, module instances, connections, module-type schemas, and the
// structured error taxonomy used across all packages.
//
// Everything here round-trips through JSON without loss; the persistence
// layer and the HTTP API both serialize these structures directly.
package types
