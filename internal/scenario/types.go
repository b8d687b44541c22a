package scenario

// ScenarioStatus represents the outcome of a scenario execution.
type ScenarioStatus string

const (
	StatusCompleted ScenarioStatus = "completed"
	StatusFailed    ScenarioStatus = "failed"
)

// Step is one action the executor performs against a twin environment.
type Step struct {
	Action string `json:"action"`
	Expect string `json:"expect,omitempty"`
}

// ExecuteRequest describes one scenario to run.
type ExecuteRequest struct {
	ScenarioID           string `json:"scenario_id"`
	SpecRef              string `json:"spec_ref"`
	CriterionRef         string `json:"criterion_ref,omitempty"`
	Steps                []Step `json:"steps"`
	SatisfactionCriteria string `json:"satisfaction_criteria,omitempty"`
	// Namespace targets a provisioned twin environment; empty runs in stub mode
	Namespace string `json:"dtu_namespace,omitempty"`
}

// StepResult records one executed step, its observed response, and whether
// its assertions held.
type StepResult struct {
	StepID           string         `json:"step_id"`
	Request          map[string]any `json:"request"`
	Response         map[string]any `json:"response"`
	AssertionsPassed bool           `json:"assertions_passed"`
	LatencyMs        float64        `json:"latency_ms,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// TrajectoryLog is the full record of one scenario execution, forwarded to
// the judge for satisfaction scoring.
type TrajectoryLog struct {
	TrajectoryID         string         `json:"trajectory_id"`
	ScenarioID           string         `json:"scenario_id"`
	Steps                []StepResult   `json:"steps"`
	StructuralAssertions map[string]int `json:"structural_assertions"`
}

// ExecuteResult is the outcome of one scenario execution with its optional
// judge score.
type ExecuteResult struct {
	ScenarioID        string         `json:"scenario_id"`
	Status            ScenarioStatus `json:"status"`
	Trajectory        TrajectoryLog  `json:"trajectory"`
	SatisfactionScore *float64       `json:"satisfaction_score,omitempty"`
	JudgeReasoning    string         `json:"judge_reasoning,omitempty"`
	ElapsedMs         float64        `json:"elapsed_ms"`
}

// BatchRequest runs multiple scenarios under the executor's concurrency bound.
type BatchRequest struct {
	Scenarios []ExecuteRequest `json:"scenarios"`
	Parallel  bool             `json:"parallel"`
}

// BatchResult carries per-scenario results in input order plus the weighted
// aggregate across scored scenarios.
type BatchResult struct {
	Results               []ExecuteResult `json:"results"`
	AggregateSatisfaction *float64        `json:"aggregate_satisfaction,omitempty"`
}
