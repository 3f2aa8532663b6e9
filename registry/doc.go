// Package registry maps module-type identifiers to their category, config
// schema, and executable behavior.
//
// The registry is populated once at process start from the static catalog
// and is read-only thereafter. Executors are registered per category; the
// engine provides one executor for each of Input, AI Model, Logic, and
// Output. Adding a category means adding an executor and a registry entry,
// never subclassing.
package registry
