package spec

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

func scenarioID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, hex[:12])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CompileCriterion compiles a single acceptance criterion into a scenario
// skeleton. Client steps come from the spec's inputs, system steps from its
// outputs; a spec with neither gets a single exercise step so the criterion
// is still executable.
func CompileCriterion(s *Spec, criterion AcceptanceCriterion) ScenarioSkeleton {
	var steps []ScenarioStep
	for _, in := range s.Inputs {
		steps = append(steps, ScenarioStep{
			Actor:  "client",
			Action: fmt.Sprintf("Provide %s (%s)", in.Name, in.Type),
			Expect: fmt.Sprintf("%s accepted by %s", in.Name, s.Domain.Service),
		})
	}

	for _, out := range s.Outputs {
		expect := "valid output"
		if len(out.Constraints) > 0 {
			expect = strings.Join(out.Constraints, "; ")
		}
		steps = append(steps, ScenarioStep{
			Actor:  "system",
			Action: fmt.Sprintf("Produce %s (%s)", out.Name, out.Type),
			Expect: expect,
		})
	}

	if len(steps) == 0 {
		steps = append(steps, ScenarioStep{
			Actor:  "client",
			Action: fmt.Sprintf("Exercise behavior: %s", truncate(criterion.Criterion, 120)),
			Expect: "Criterion satisfied",
		})
	}

	return ScenarioSkeleton{
		ID:           scenarioID("scn"),
		SpecRef:      fmt.Sprintf("%s:%s", s.ID, s.Version),
		CriterionRef: criterion.Criterion,
		Preconditions: []string{
			fmt.Sprintf("Service %s is running", s.Domain.Service),
			fmt.Sprintf("Twin for %s is available", s.Domain.Service),
		},
		Steps:                steps,
		SatisfactionCriteria: criterion.Criterion,
	}
}

// CompileInvariant compiles an invariant into a negative-test skeleton: an
// adversary attempts a violation and an observer confirms the invariant held.
func CompileInvariant(s *Spec, invariant string) ScenarioSkeleton {
	return ScenarioSkeleton{
		ID:           scenarioID("scn-inv"),
		SpecRef:      fmt.Sprintf("%s:%s", s.ID, s.Version),
		CriterionRef: fmt.Sprintf("[INVARIANT] %s", invariant),
		Preconditions: []string{
			fmt.Sprintf("Service %s is running", s.Domain.Service),
		},
		Steps: []ScenarioStep{
			{
				Actor:  "adversary",
				Action: fmt.Sprintf("Attempt to violate: %s", truncate(invariant, 200)),
				Expect: "System prevents violation",
			},
			{
				Actor:  "observer",
				Action: "Verify invariant still holds",
				Expect: fmt.Sprintf("Invariant maintained: %s", truncate(invariant, 200)),
			},
		},
		SatisfactionCriteria: fmt.Sprintf("System preserves invariant: %s", invariant),
	}
}

// Compile turns a published or active spec into scenario skeletons: one per
// acceptance criterion plus one adversarial skeleton per invariant. Any
// compilation error aborts with an empty scenario list.
func Compile(s *Spec) CompileResult {
	var errs []string

	if s.State != StatePublished && s.State != StateActive {
		errs = append(errs, fmt.Sprintf("spec must be published or active to compile; current state: %s", s.State))
		return CompileResult{SpecID: s.ID, Version: s.Version, Errors: errs}
	}

	if len(s.AcceptanceCriteria) == 0 {
		errs = append(errs, "spec has no acceptance criteria")
	} else if math.Abs(s.WeightSum()-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("acceptance criteria weights sum to %.2f, expected 1.0", s.WeightSum()))
	}

	if len(errs) > 0 {
		return CompileResult{SpecID: s.ID, Version: s.Version, Errors: errs}
	}

	scenarios := make([]ScenarioSkeleton, 0, len(s.AcceptanceCriteria)+len(s.Invariants))
	for _, criterion := range s.AcceptanceCriteria {
		scenarios = append(scenarios, CompileCriterion(s, criterion))
	}
	for _, invariant := range s.Invariants {
		scenarios = append(scenarios, CompileInvariant(s, invariant))
	}

	return CompileResult{SpecID: s.ID, Version: s.Version, Scenarios: scenarios}
}
