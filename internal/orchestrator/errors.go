package orchestrator

import "errors"

var (
	// ErrAlreadyInProgress is returned when an orchestration for the same
	// task or prompt is already running.
	ErrAlreadyInProgress = errors.New("orchestration already in progress")
	// ErrNoProviderConfigured is returned when no inference service is set.
	ErrNoProviderConfigured = errors.New("no inference provider configured")
	// ErrCircularDependency is returned when the scheduler finds remaining
	// tasks but none of them is ready.
	ErrCircularDependency = errors.New("circular dependency between tasks")
	// ErrTaskNotFound is returned when an existing task ID does not resolve.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyTeam is returned when tasks are scheduled without agents.
	ErrEmptyTeam = errors.New("no agents to execute tasks")
)
