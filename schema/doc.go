// Package schema validates module configurations against the config schema
// declared by their module type.
//
// Validation is a pure function: defaults are substituted for absent
// fields, declared types are enforced, enum and range constraints are
// checked, and fields unknown to the schema pass through unchanged with a
// non-fatal warning.
package schema
