// Package orchestrator manages the coordination of agents and workflows.
//
// The orchestrator package provides functionality for:
//   - Strategy selection: simple requests run as one task, others are broken down
//   - Dependency management: subtasks run in batches once their dependencies ran
//   - Agent coordination: batches are spread round-robin over a matched team
//   - Review: task output is validated and refined within a fixed budget
//
// Only one orchestration per logical task runs at a time. The key is the
// existing task ID when one is given, otherwise a digest of the prompt; a
// second call with a key in flight fails with ErrAlreadyInProgress.
//
// Example usage:
//
//	orch, err := orchestrator.New(orchestrator.RequiredConfig{
//	    Tasks:     db,
//	    Artifacts: db,
//	    Agents:    state.NewAgentRegistry(db),
//	    Analyzer:  analyzer.New(runner),
//	}, orchestrator.WithInference(runner))
//	result, err := orch.Orchestrate(ctx, "Write a product launch plan", "")
package orchestrator
