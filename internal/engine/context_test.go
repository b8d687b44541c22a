package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextCacheDiscoversOnce(t *testing.T) {
	var c contextCache
	spec := map[string]any{
		"domain": map[string]any{"service": "checkout"},
	}

	first, discovered := c.get(spec)
	assert.True(t, discovered)
	assert.Contains(t, first, "checkout")

	second, discovered := c.get(spec)
	assert.False(t, discovered)
	assert.Equal(t, first, second)
}

func TestContextCacheInvalidateForcesRediscovery(t *testing.T) {
	var c contextCache
	spec := map[string]any{"domain": map[string]any{"service": "checkout"}}

	c.get(spec)
	c.invalidate()

	_, discovered := c.get(spec)
	assert.True(t, discovered)
}

func TestDiscoverContextSummarizesSpec(t *testing.T) {
	spec := map[string]any{
		"domain": map[string]any{"service": "checkout"},
		"dependencies": map[string]any{
			"services": []any{"payments", "inventory"},
		},
		"acceptance_criteria": []any{
			map[string]any{"criterion": "totals correct"},
			map[string]any{"criterion": "fast enough"},
		},
	}

	got := discoverContext(spec)
	assert.Contains(t, got, "service: checkout")
	assert.Contains(t, got, "inventory, payments")
	assert.Contains(t, got, "2 acceptance criteria")
}

func TestDiscoverContextEmptySpec(t *testing.T) {
	assert.Equal(t, "no codebase context available", discoverContext(map[string]any{}))
}
