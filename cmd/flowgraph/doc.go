// Command flowgraph runs the AI workflow service: the module catalog,
// workflow CRUD, and the execution engine behind one HTTP API.
//
// Usage:
//
//	flowgraph serve                       start the server
//	flowgraph serve --config config.yaml  start with a config file
//	flowgraph version                     print version information
//	flowgraph health                      probe a running server
package main
