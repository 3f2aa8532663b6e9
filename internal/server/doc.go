// Package server manages the HTTP server lifecycle: non-blocking start,
// graceful shutdown, and signal handling for the flowgraph daemon.
package server
