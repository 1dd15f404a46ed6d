package workflow

import (
	"fmt"

	"github.com/epigenicai/genagent/types"
)

// StageStatus is the lifecycle state of one stage.
type StageStatus string

const (
	// StagePending means dependencies are not yet satisfied.
	StagePending StageStatus = "pending"
	// StageReady means all dependencies succeeded and the stage awaits dispatch.
	StageReady StageStatus = "ready"
	// StageRunning means an attempt is in flight.
	StageRunning StageStatus = "running"
	// StageRetrying means the last attempt failed and a retry is scheduled.
	StageRetrying StageStatus = "retrying"
	// StageSucceeded is terminal success.
	StageSucceeded StageStatus = "succeeded"
	// StageFailed is terminal failure.
	StageFailed StageStatus = "failed"
	// StageSkipped is terminal for optional stages whose capability was
	// unavailable; dependents run without their output.
	StageSkipped StageStatus = "skipped-degraded"
)

// Terminal reports whether the status is an end state.
func (s StageStatus) Terminal() bool {
	return s == StageSucceeded || s == StageFailed || s == StageSkipped
}

// InputContext is what a stage's input builder sees: the committed outputs
// of its dependencies plus the revision state for report reruns.
type InputContext struct {
	// Outputs maps stage id to committed output. Skipped stages are absent.
	Outputs map[string]any
	// Issues accumulates auditor findings across revision rounds.
	Issues []types.AuditIssue
	// Previous is the last accepted draft, set from the second round on.
	Previous *types.Report
	// Round is the zero-based revision round.
	Round int
}

// Output returns the committed output of a dependency, if present.
func (ic InputContext) Output(stageID string) (any, bool) {
	out, ok := ic.Outputs[stageID]
	return out, ok
}

// InputBuilder assembles a stage's typed agent input from the graph state.
type InputBuilder func(ic InputContext) (any, error)

// Stage is one node of the task graph: a single agent invocation with its
// dependencies and execution bookkeeping. All mutable fields are owned by
// the runner and only read elsewhere through snapshots.
type Stage struct {
	ID        string
	Agent     types.Agent
	DependsOn []string
	// Optional stages degrade to skipped-degraded instead of failing the
	// job when their capability is unavailable.
	Optional bool
	Input    InputBuilder

	status   StageStatus
	attempts int
	progress int
	output   any
	err      error
}

// StageSnapshot is the externally visible view of one stage.
type StageSnapshot struct {
	ID       string      `json:"id"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
	Attempts int         `json:"attempts"`
	Err      string      `json:"error,omitempty"`
}

// Graph is the directed acyclic dependency graph of one job's stages.
type Graph struct {
	stages map[string]*Stage
	order  []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{stages: make(map[string]*Stage)}
}

// Add inserts a stage. Stage ids must be unique.
func (g *Graph) Add(stage *Stage) error {
	if stage.ID == "" {
		return types.NewError(types.ErrInvalidInput, "stage missing id")
	}
	if _, exists := g.stages[stage.ID]; exists {
		return types.Errorf(types.ErrInvalidInput, "duplicate stage id %q", stage.ID)
	}
	stage.status = StagePending
	g.stages[stage.ID] = stage
	g.order = append(g.order, stage.ID)
	return nil
}

// Stage returns a stage by id.
func (g *Graph) Stage(id string) (*Stage, bool) {
	st, ok := g.stages[id]
	return st, ok
}

// Stages returns the stage ids in insertion order.
func (g *Graph) Stages() []string {
	return append([]string(nil), g.order...)
}

// Validate checks that every dependency exists and that the dependency
// relation is acyclic (Kahn's algorithm).
func (g *Graph) Validate() error {
	indegree := make(map[string]int, len(g.stages))
	dependents := make(map[string][]string, len(g.stages))
	for id, st := range g.stages {
		for _, dep := range st.DependsOn {
			if _, ok := g.stages[dep]; !ok {
				return types.Errorf(types.ErrInvalidInput,
					"stage %q depends on unknown stage %q", id, dep)
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(g.stages))
	for id := range g.stages {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited != len(g.stages) {
		return types.NewError(types.ErrInvalidInput, "dependency cycle detected")
	}
	return nil
}

func (s *Stage) String() string {
	return fmt.Sprintf("%s(%s)", s.ID, s.status)
}
