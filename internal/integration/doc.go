// Package integration provides cross-package integration tests for devs.
// They run the orchestrator end to end against a real SQLite store, the
// built-in agent catalog and the heuristic analyzer, with inference scripted.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
