// Package config loads the flowgraph configuration.
//
// Values resolve in three layers: compiled defaults, then an optional
// YAML file, then FLOWGRAPH_* environment variables. Engine knobs such
// as the provider timeout and retry budget are explicit configuration,
// never hard-coded constants.
package config
