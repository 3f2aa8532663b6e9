// Package metrics exposes Prometheus instrumentation for workflow runs,
// module executions, and the HTTP surface.
package metrics
