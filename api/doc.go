// Package api exposes the flowgraph HTTP surface: the module-type
// catalog, workflow CRUD and cloning, provider credential management,
// and workflow execution. All responses share one JSON envelope.
package api
