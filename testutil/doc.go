// Package testutil provides shared workflow fixtures and context
// helpers for tests.
package testutil
