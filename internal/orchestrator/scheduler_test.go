package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// mockExecutor records executions and reports success unless told to fail.
type mockExecutor struct {
	mu       sync.Mutex
	order    []string
	agentFor map[string]string
	fail     map[string]bool
	delay    time.Duration

	running    atomic.Int32
	maxRunning atomic.Int32
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{agentFor: make(map[string]string), fail: make(map[string]bool)}
}

func (m *mockExecutor) ExecuteWithAgent(_ context.Context, task *models.Task, agent *models.Agent, _ string) *models.ExecutionResult {
	n := m.running.Add(1)
	for {
		cur := m.maxRunning.Load()
		if n <= cur || m.maxRunning.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.running.Add(-1)

	m.mu.Lock()
	m.order = append(m.order, task.ID)
	m.agentFor[task.ID] = agent.ID
	m.mu.Unlock()

	res := &models.ExecutionResult{TaskID: task.ID, AgentID: agent.ID, Success: !m.fail[task.ID]}
	if !res.Success {
		res.Errors = []string{"boom"}
	}
	return res
}

func agents(ids ...string) []*models.Agent {
	out := make([]*models.Agent, len(ids))
	for i, id := range ids {
		out[i] = &models.Agent{ID: id, Name: id}
	}
	return out
}

func resultIDs(results []*models.ExecutionResult) string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.TaskID
	}
	return strings.Join(ids, ",")
}

func TestCoordinateTeamExecution_Waves(t *testing.T) {
	tasks := []*models.Task{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B", Dependencies: []string{"a"}},
		{ID: "c", Title: "C"},
		{ID: "d", Title: "D", Dependencies: []string{"b", "c"}},
	}
	exec := newMockExecutor()

	results, err := NewScheduler(exec, 0).CoordinateTeamExecution(context.Background(), tasks, agents("x", "y"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultIDs(results); got != "a,c,b,d" {
		t.Errorf("results order = %s, want a,c,b,d", got)
	}

	want := map[string]string{"a": "x", "c": "y", "b": "x", "d": "x"}
	for id, agent := range want {
		if exec.agentFor[id] != agent {
			t.Errorf("task %s ran with %s, want %s", id, exec.agentFor[id], agent)
		}
	}
}

func TestCoordinateTeamExecution_BatchLimit(t *testing.T) {
	tests := []struct {
		name        string
		team        []*models.Agent
		maxParallel int
		wantMax     int32
	}{
		{"team size caps batch", agents("x"), 0, 1},
		{"max parallel caps batch", agents("x", "y", "z"), 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := []*models.Task{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
			exec := newMockExecutor()
			exec.delay = 20 * time.Millisecond

			results, err := NewScheduler(exec, tt.maxParallel).CoordinateTeamExecution(context.Background(), tasks, tt.team)
			if err != nil {
				t.Fatal(err)
			}
			if got := resultIDs(results); got != "1,2,3,4" {
				t.Errorf("results order = %s", got)
			}
			if got := exec.maxRunning.Load(); got > tt.wantMax {
				t.Errorf("max concurrent executions = %d, want <= %d", got, tt.wantMax)
			}
		})
	}
}

func TestCoordinateTeamExecution_FailedTaskUnblocksDependents(t *testing.T) {
	tasks := []*models.Task{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
	}
	exec := newMockExecutor()
	exec.fail["a"] = true

	results, err := NewScheduler(exec, 0).CoordinateTeamExecution(context.Background(), tasks, agents("x"))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Success || !results[1].Success {
		t.Errorf("unexpected results: %s", resultIDs(results))
	}
}

func TestCoordinateTeamExecution_Cycle(t *testing.T) {
	tasks := []*models.Task{
		{ID: "free"},
		{ID: "p", Dependencies: []string{"q"}},
		{ID: "q", Dependencies: []string{"p"}},
	}
	exec := newMockExecutor()

	results, err := NewScheduler(exec, 0).CoordinateTeamExecution(context.Background(), tasks, agents("x"))
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("err = %v, want ErrCircularDependency", err)
	}
	if !strings.Contains(err.Error(), "p") || !strings.Contains(err.Error(), "q") {
		t.Errorf("error should name unresolved tasks: %v", err)
	}
	if got := resultIDs(results); got != "free" {
		t.Errorf("executed before cycle = %s, want free", got)
	}
}

func TestCoordinateTeamExecution_UnknownDependencyNeverReady(t *testing.T) {
	tasks := []*models.Task{{ID: "a", Dependencies: []string{"ghost"}}}
	_, err := NewScheduler(newMockExecutor(), 0).CoordinateTeamExecution(context.Background(), tasks, agents("x"))
	if !errors.Is(err, ErrCircularDependency) {
		t.Errorf("err = %v, want ErrCircularDependency", err)
	}
}

func TestCoordinateTeamExecution_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newMockExecutor()
	_, err := NewScheduler(exec, 0).CoordinateTeamExecution(ctx, []*models.Task{{ID: "a"}}, agents("x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(exec.order) != 0 {
		t.Errorf("no task should run after cancellation, ran %v", exec.order)
	}
}

func TestCoordinateTeamExecution_EmptyInputs(t *testing.T) {
	s := NewScheduler(newMockExecutor(), 0)
	if results, err := s.CoordinateTeamExecution(context.Background(), nil, nil); err != nil || results != nil {
		t.Errorf("no tasks: got %v, %v", results, err)
	}
	if _, err := s.CoordinateTeamExecution(context.Background(), []*models.Task{{ID: "a"}}, nil); !errors.Is(err, ErrEmptyTeam) {
		t.Errorf("err = %v, want ErrEmptyTeam", err)
	}
}

func TestSchedulerEmitsTaskEvents(t *testing.T) {
	events := NewEventEmitter(10)
	s := NewScheduler(newMockExecutor(), 0)
	s.SetEventEmitter(events)

	if _, err := s.CoordinateTeamExecution(context.Background(), []*models.Task{{ID: "a"}}, agents("x")); err != nil {
		t.Fatal(err)
	}
	events.Close()

	var types []EventType
	for ev := range events.Events() {
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != EventTaskStarted || types[1] != EventTaskCompleted {
		t.Errorf("events = %v", types)
	}
}

func TestTaskPrompt(t *testing.T) {
	if got := TaskPrompt(&models.Task{Title: "T", Description: "T"}); got != "T" {
		t.Errorf("TaskPrompt = %q", got)
	}
	if got := TaskPrompt(&models.Task{Title: "T", Description: "D"}); got != "T\n\nD" {
		t.Errorf("TaskPrompt = %q", got)
	}
}
