// Package spec defines the machine-checkable specification model, its
// validator, and the compiler that turns acceptance criteria into scenario
// skeletons for execution.
package spec

// State tracks a specification through its lifecycle. Only published and
// active specs may be compiled into scenarios.
type State string

const (
	StateDraft      State = "draft"
	StateReview     State = "review"
	StatePublished  State = "published"
	StateActive     State = "active"
	StateSatisfied  State = "satisfied"
	StateDeprecated State = "deprecated"
)

// IsValid checks if the spec state value is valid
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateReview, StatePublished, StateActive, StateSatisfied, StateDeprecated:
		return true
	}
	return false
}

// AcceptanceCriterion is one weighted, machine-checkable success condition.
type AcceptanceCriterion struct {
	Criterion          string  `json:"criterion"`
	Priority           string  `json:"priority,omitempty"`
	SatisfactionWeight float64 `json:"satisfaction_weight"`
}

// Domain names the service under specification and its implementation stack.
type Domain struct {
	Service   string `json:"service"`
	Language  string `json:"language"`
	Framework string `json:"framework,omitempty"`
}

// Input describes one input the specified behavior consumes.
type Input struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
}

// Output describes one output the specified behavior produces.
type Output struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Format      string   `json:"format,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// Dependencies lists collaborator services and model capabilities the spec
// relies on. Capability refs use "model:capability" form.
type Dependencies struct {
	Services     []string `json:"services,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Spec is a full machine-checkable specification.
type Spec struct {
	// ID is globally unique, format: spec-{date}-{slug}
	ID          string `json:"id"`
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       State  `json:"state"`

	Domain             Domain                `json:"domain"`
	Inputs             []Input               `json:"inputs,omitempty"`
	Outputs            []Output              `json:"outputs,omitempty"`
	Invariants         []string              `json:"invariants,omitempty"`
	Constraints        []string              `json:"constraints,omitempty"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria"`
	Dependencies       Dependencies          `json:"dependencies"`
}

// WeightSum returns the total satisfaction weight across acceptance criteria.
func (s *Spec) WeightSum() float64 {
	var sum float64
	for _, c := range s.AcceptanceCriteria {
		sum += c.SatisfactionWeight
	}
	return sum
}

// ScenarioStep is one actor/action/expectation triple in a skeleton.
type ScenarioStep struct {
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Expect string `json:"expect"`
}

// ScenarioSkeleton is a compiled scenario derived from a spec's acceptance
// criteria. The scenario executor populates skeletons with concrete data.
type ScenarioSkeleton struct {
	ID                   string         `json:"id"`
	SpecRef              string         `json:"spec_ref"`
	CriterionRef         string         `json:"criterion_ref"`
	Preconditions        []string       `json:"preconditions,omitempty"`
	Steps                []ScenarioStep `json:"steps"`
	SatisfactionCriteria string         `json:"satisfaction_criteria"`
}

// ValidateResult reports spec well-formedness.
type ValidateResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// CompileResult carries the compiled skeletons or the errors that blocked
// compilation.
type CompileResult struct {
	SpecID    string             `json:"spec_id"`
	Version   string             `json:"version"`
	Scenarios []ScenarioSkeleton `json:"scenarios"`
	Errors    []string           `json:"errors,omitempty"`
}
