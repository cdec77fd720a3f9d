// Package graph provides a dependency graph for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/codename-co/devs-sub002/pkg/models"
)

var (
	// ErrCycleDetected indicates a circular dependency was found in the task graph.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrUnknownDependency indicates a task depends on a task outside the graph.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// DependencyGraph represents a directed graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
// Node order is the order tasks were added, so every listing is stable.
type DependencyGraph struct {
	mu sync.RWMutex
	// order holds task IDs in insertion order.
	order []string
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a graph from tasks. Unlike Build it never fails: unknown
// dependencies are kept as edges and simply never become satisfied.
func New(tasks []*models.Task) *DependencyGraph {
	g := &DependencyGraph{
		nodes:    make(map[string]*models.Task, len(tasks)),
		edges:    make(map[string][]string, len(tasks)),
		debugLog: func(format string, args ...interface{}) {},
	}
	for _, task := range tasks {
		if _, dup := g.nodes[task.ID]; dup {
			continue
		}
		g.order = append(g.order, task.ID)
		g.nodes[task.ID] = task
		g.edges[task.ID] = append([]string(nil), task.Dependencies...)
	}
	return g
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph and validates it.
// Returns an error if a cycle is detected or dependencies reference unknown tasks.
func Build(tasks []*models.Task) (*DependencyGraph, error) {
	g := New(tasks)
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if _, ok := g.nodes[depID]; !ok {
				return nil, fmt.Errorf("task %s depends on %s: %w", id, depID, ErrUnknownDependency)
			}
		}
	}
	if cycle := g.FindCycle(); len(cycle) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrCycleDetected, cycle)
	}
	return g, nil
}

// Ready returns tasks, in insertion order, that are not in executed and whose
// every dependency is in executed.
func (g *DependencyGraph) Ready(executed map[string]bool) []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for _, id := range g.order {
		if executed[id] {
			continue
		}
		satisfied := true
		for _, depID := range g.edges[id] {
			if !executed[depID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, g.nodes[id])
		}
	}
	g.debugLog("[graph.Ready] %d executed, %d ready", len(executed), len(ready))
	return ready
}

// Pending returns the IDs of tasks not in executed, in insertion order.
func (g *DependencyGraph) Pending(executed map[string]bool) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for _, id := range g.order {
		if !executed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindCycle returns the task IDs of one dependency cycle, or nil.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		stack = append(stack, id)

		for _, depID := range g.edges[id] {
			if _, ok := g.nodes[depID]; !ok {
				continue
			}
			switch colors[depID] {
			case 1:
				// Back edge: the cycle is the stack suffix starting at depID.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == depID {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return cycle
		}
	}
	return nil
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
