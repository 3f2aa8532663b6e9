// Package store persists workflows and provider credentials.
//
// Two implementations share one Store interface: a gorm-backed SQL
// store (sqlite by default, postgres and mysql selectable by config)
// and a MongoDB store. The execution engine only ever reads through
// the interface; all writes come from the API layer.
package store
