package types

import (
	"fmt"
)

// ConvergenceState represents the current phase of a convergence session.
// The loop moves through Generating -> Verifying -> Evaluating every
// iteration; the remaining states are terminal or branch outcomes.
type ConvergenceState string

const (
	StateInitializing      ConvergenceState = "initializing"
	StateGenerating        ConvergenceState = "generating"
	StateVerifying         ConvergenceState = "verifying"
	StateEvaluating        ConvergenceState = "evaluating"
	StateRegenerating      ConvergenceState = "regenerating"
	StateConverged         ConvergenceState = "converged"
	StateStalled           ConvergenceState = "stalled"
	StateBudgetExhausted   ConvergenceState = "budget_exhausted"
	StateAmendmentProposed ConvergenceState = "amendment_proposed"
)

// IsValid checks if the state value is valid
func (s ConvergenceState) IsValid() bool {
	switch s {
	case StateInitializing, StateGenerating, StateVerifying, StateEvaluating,
		StateRegenerating, StateConverged, StateStalled, StateBudgetExhausted,
		StateAmendmentProposed:
		return true
	}
	return false
}

// IsTerminal reports whether the state ends a convergence session.
func (s ConvergenceState) IsTerminal() bool {
	switch s {
	case StateConverged, StateStalled, StateBudgetExhausted, StateAmendmentProposed:
		return true
	}
	return false
}

// ExecutionMode controls how the engine reacts to amendment findings.
// Only Supervised pauses the loop for operator review; in every other mode
// amendments are advisory and the loop keeps regenerating.
type ExecutionMode string

const (
	ModeAutonomous ExecutionMode = "autonomous"
	ModeSupervised ExecutionMode = "supervised"
	ModeDebug      ExecutionMode = "debug"
	ModeBenchmark  ExecutionMode = "benchmark"
)

// IsValid checks if the execution mode value is valid
func (m ExecutionMode) IsValid() bool {
	switch m {
	case ModeAutonomous, ModeSupervised, ModeDebug, ModeBenchmark:
		return true
	}
	return false
}

// BudgetAllocation describes how a session's total budget is expected to be
// split across cost centers. The percentage splits are descriptive metadata
// for reporting; only TotalBudgetUSD is enforced by the loop.
type BudgetAllocation struct {
	GenerationPct  float64 `json:"generation_pct"`
	ScenariosPct   float64 `json:"scenarios_pct"`
	JudgePct       float64 `json:"judge_pct"`
	OverheadPct    float64 `json:"overhead_pct"`
	TotalBudgetUSD float64 `json:"total_budget_usd"`
}

// DefaultBudget returns the standard allocation for a session.
func DefaultBudget() BudgetAllocation {
	return BudgetAllocation{
		GenerationPct:  0.50,
		ScenariosPct:   0.30,
		JudgePct:       0.15,
		OverheadPct:    0.05,
		TotalBudgetUSD: 100.0,
	}
}

// GenerationBudget returns the portion of the budget earmarked for generation.
func (b BudgetAllocation) GenerationBudget() float64 {
	return b.TotalBudgetUSD * b.GenerationPct
}

// ScenariosBudget returns the portion earmarked for scenario execution.
func (b BudgetAllocation) ScenariosBudget() float64 {
	return b.TotalBudgetUSD * b.ScenariosPct
}

// JudgeBudget returns the portion earmarked for trajectory judging.
func (b BudgetAllocation) JudgeBudget() float64 {
	return b.TotalBudgetUSD * b.JudgePct
}

// IterationResult records the outcome of one completed loop iteration.
// Results are append-only: once added to the ledger they are never mutated.
type IterationResult struct {
	// Iteration is the 1-based iteration index
	Iteration int `json:"iteration"`
	// SatisfactionScore is the aggregate score for this iteration, in [0,1]
	SatisfactionScore float64 `json:"satisfaction_score"`
	// Delta is the change from the previous iteration's score, rounded to 4 decimals
	Delta float64 `json:"delta"`
	// CriteriaScores maps criterion name to its score; empty when the
	// evaluation backend only reports an aggregate
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	// BudgetSpentUSD is the cost of this iteration (generate+verify+evaluate)
	BudgetSpentUSD float64 `json:"budget_spent_usd"`
	// StallCount is the running stall counter after this iteration
	StallCount int `json:"stall_count"`
}

// AmendmentDiagnosis classifies why a criterion is suspected of being
// mis-specified rather than under-generated.
type AmendmentDiagnosis string

const (
	DiagnosisAmbiguous      AmendmentDiagnosis = "ambiguous"
	DiagnosisUnsatisfiable  AmendmentDiagnosis = "unsatisfiable"
	DiagnosisContradictory  AmendmentDiagnosis = "contradictory"
	DiagnosisUnderspecified AmendmentDiagnosis = "underspecified"
)

// AmendmentProposal flags an acceptance criterion that is likely the obstacle
// to convergence, with evidence from a sliding window of the ledger.
type AmendmentProposal struct {
	CriterionRef    string             `json:"criterion_ref"`
	CurrentScore    float64            `json:"current_score"`
	IterationsStuck int                `json:"iterations_stuck"`
	Diagnosis       AmendmentDiagnosis `json:"diagnosis"`
	Suggestion      string             `json:"suggestion"`
}

// ConvergeRequest is the immutable input to a convergence session.
type ConvergeRequest struct {
	SpecID                string           `json:"spec_id" validate:"required"`
	SpecVersion           string           `json:"spec_version" validate:"required"`
	Spec                  map[string]any   `json:"spec"`
	SatisfactionThreshold float64          `json:"satisfaction_threshold" validate:"gte=0,lte=1"`
	MaxIterations         int              `json:"max_iterations" validate:"gte=1"`
	Budget                BudgetAllocation `json:"budget"`
	Mode                  ExecutionMode    `json:"mode"`
	StallLimit            int              `json:"stall_limit" validate:"gte=1"`
}

// ApplyDefaults fills zero-valued request fields with standard settings.
func (r *ConvergeRequest) ApplyDefaults() {
	if r.SatisfactionThreshold == 0 {
		r.SatisfactionThreshold = 0.90
	}
	if r.MaxIterations == 0 {
		r.MaxIterations = 20
	}
	if r.StallLimit == 0 {
		r.StallLimit = 3
	}
	if r.Mode == "" {
		r.Mode = ModeAutonomous
	}
	if r.Budget == (BudgetAllocation{}) {
		r.Budget = DefaultBudget()
	}
}

// ConvergeResponse is the terminal output of a convergence session.
type ConvergeResponse struct {
	SpecID              string            `json:"spec_id"`
	State               ConvergenceState  `json:"state"`
	IterationsCompleted int               `json:"iterations_completed"`
	FinalSatisfaction   float64           `json:"final_satisfaction"`
	IterationHistory    []IterationResult `json:"iteration_history"`
	BudgetSpentUSD      float64           `json:"budget_spent_usd"`
	// CodeArtifactRef is set only when State is StateConverged
	CodeArtifactRef string `json:"code_artifact_ref,omitempty"`
	// Amendments is non-empty only when State is StateAmendmentProposed
	Amendments []AmendmentProposal `json:"amendments,omitempty"`
}

// ConvergenceStatus is the read-only view served for status queries.
type ConvergenceStatus struct {
	SpecID              string           `json:"spec_id"`
	State               ConvergenceState `json:"state"`
	CurrentIteration    int              `json:"current_iteration"`
	CurrentSatisfaction float64          `json:"current_satisfaction"`
	BudgetSpentUSD      float64          `json:"budget_spent_usd"`
}

// String returns a short human-readable summary of a response.
func (r *ConvergeResponse) String() string {
	return fmt.Sprintf("%s: %s after %d iterations (satisfaction %.2f, spent $%.2f)",
		r.SpecID, r.State, r.IterationsCompleted, r.FinalSatisfaction, r.BudgetSpentUSD)
}
