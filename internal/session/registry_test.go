package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractorlabs/attractor/internal/types"
)

func TestBeginStartsInitializing(t *testing.T) {
	r := NewRegistry()
	r.Begin("spec-20260115-cart")

	status, ok := r.Status("spec-20260115-cart")
	require.True(t, ok)
	assert.Equal(t, types.StateInitializing, status.State)
	assert.Equal(t, "spec-20260115-cart", status.SpecID)
}

func TestStatusUnknownSpec(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Status("spec-20260115-missing")
	assert.False(t, ok)
}

func TestUpdateTracksProgress(t *testing.T) {
	r := NewRegistry()
	r.Begin("spec-20260115-cart")

	r.Update("spec-20260115-cart", types.ConvergenceStatus{
		SpecID:              "spec-20260115-cart",
		State:               types.StateEvaluating,
		CurrentIteration:    4,
		CurrentSatisfaction: 0.72,
		BudgetSpentUSD:      3.20,
	})

	status, ok := r.Status("spec-20260115-cart")
	require.True(t, ok)
	assert.Equal(t, types.StateEvaluating, status.State)
	assert.Equal(t, 4, status.CurrentIteration)
	assert.InDelta(t, 0.72, status.CurrentSatisfaction, 1e-9)
}

func TestUpdateUnknownSpecIsDropped(t *testing.T) {
	r := NewRegistry()
	r.Update("spec-20260115-ghost", types.ConvergenceStatus{State: types.StateGenerating})
	_, ok := r.Status("spec-20260115-ghost")
	assert.False(t, ok)
}

func TestFinishSyncsStatusAndStoresResponse(t *testing.T) {
	r := NewRegistry()
	r.Begin("spec-20260115-cart")

	resp := &types.ConvergeResponse{
		SpecID:              "spec-20260115-cart",
		State:               types.StateConverged,
		IterationsCompleted: 6,
		FinalSatisfaction:   0.93,
		BudgetSpentUSD:      4.80,
		CodeArtifactRef:     "artifact://spec-20260115-cart/iter-6",
	}
	r.Finish("spec-20260115-cart", resp)

	status, ok := r.Status("spec-20260115-cart")
	require.True(t, ok)
	assert.Equal(t, types.StateConverged, status.State)
	assert.Equal(t, 6, status.CurrentIteration)

	stored, ok := r.Response("spec-20260115-cart")
	require.True(t, ok)
	assert.Equal(t, resp, stored)
}

func TestFinishWithoutBeginStillStores(t *testing.T) {
	r := NewRegistry()
	r.Finish("spec-20260115-cart", &types.ConvergeResponse{
		SpecID: "spec-20260115-cart",
		State:  types.StateStalled,
	})

	status, ok := r.Status("spec-20260115-cart")
	require.True(t, ok)
	assert.Equal(t, types.StateStalled, status.State)
}

func TestActiveExcludesTerminalSessions(t *testing.T) {
	r := NewRegistry()
	r.Begin("spec-20260115-cart")
	r.Begin("spec-20260115-ledger")
	r.Finish("spec-20260115-ledger", &types.ConvergeResponse{
		SpecID: "spec-20260115-ledger",
		State:  types.StateConverged,
	})

	active := r.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "spec-20260115-cart", active[0])
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "spec-20260115-cart"
			r.Begin(id)
			r.Update(id, types.ConvergenceStatus{SpecID: id, State: types.StateGenerating, CurrentIteration: i})
			r.Status(id)
			r.Active()
		}(i)
	}
	wg.Wait()
}
