package spec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileProducesCriterionAndInvariantScenarios(t *testing.T) {
	s := validSpec()
	result := Compile(s)

	require.Empty(t, result.Errors)
	assert.Equal(t, s.ID, result.SpecID)
	assert.Equal(t, s.Version, result.Version)
	// 2 criteria + 1 invariant
	require.Len(t, result.Scenarios, 3)

	first := result.Scenarios[0]
	assert.Equal(t, "spec-20260115-checkout:1.0.0", first.SpecRef)
	assert.Equal(t, "Valid cart produces an order", first.CriterionRef)
	assert.Equal(t, first.CriterionRef, first.SatisfactionCriteria)
	assert.True(t, strings.HasPrefix(first.ID, "scn-"))
	// one step per input plus one per output
	require.Len(t, first.Steps, 2)
	assert.Equal(t, "client", first.Steps[0].Actor)
	assert.Equal(t, "system", first.Steps[1].Actor)

	inv := result.Scenarios[2]
	assert.True(t, strings.HasPrefix(inv.ID, "scn-inv-"))
	assert.True(t, strings.HasPrefix(inv.CriterionRef, "[INVARIANT]"))
	require.Len(t, inv.Steps, 2)
	assert.Equal(t, "adversary", inv.Steps[0].Actor)
	assert.Equal(t, "observer", inv.Steps[1].Actor)
}

func TestCompileFallbackStepWhenNoInputsOrOutputs(t *testing.T) {
	s := validSpec()
	s.Inputs = nil
	s.Outputs = nil
	s.Invariants = nil

	result := Compile(s)
	require.Empty(t, result.Errors)
	require.Len(t, result.Scenarios, 2)
	require.Len(t, result.Scenarios[0].Steps, 1)
	assert.Contains(t, result.Scenarios[0].Steps[0].Action, "Exercise behavior")
}

func TestCompileRejectsDraftSpec(t *testing.T) {
	s := validSpec()
	s.State = StateDraft

	result := Compile(s)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "must be published or active")
	assert.Empty(t, result.Scenarios)
}

func TestCompileRejectsBadWeights(t *testing.T) {
	s := validSpec()
	s.AcceptanceCriteria[0].SatisfactionWeight = 0.1

	result := Compile(s)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "weights sum to")
	assert.Empty(t, result.Scenarios)
}

func TestCompileActiveSpecAllowed(t *testing.T) {
	s := validSpec()
	s.State = StateActive

	result := Compile(s)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Scenarios)
}

func TestScenarioIDsAreUnique(t *testing.T) {
	s := validSpec()
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		result := Compile(s)
		for _, scn := range result.Scenarios {
			assert.False(t, seen[scn.ID], "duplicate scenario id %s", scn.ID)
			seen[scn.ID] = true
		}
	}
}
