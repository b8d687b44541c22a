package engine

import (
	"fmt"
	"sort"
	"strings"
)

// contextCache holds the discovered codebase context for one session. The
// context is computed once and reused until a regeneration invalidates it,
// forcing rediscovery on the next iteration.
type contextCache struct {
	value string
	valid bool
}

// get returns the cached context, discovering it first when invalid. The
// returned bool reports whether discovery ran on this call.
func (c *contextCache) get(spec map[string]any) (string, bool) {
	if c.valid {
		return c.value, false
	}
	c.value = discoverContext(spec)
	c.valid = true
	return c.value, true
}

func (c *contextCache) invalidate() {
	c.valid = false
}

// discoverContext summarizes the spec payload into the context string handed
// to generation: domain, declared dependencies, and criterion names.
func discoverContext(spec map[string]any) string {
	var parts []string

	if domain, ok := spec["domain"].(map[string]any); ok {
		if service, ok := domain["service"].(string); ok && service != "" {
			parts = append(parts, "service: "+service)
		}
	}

	if deps, ok := spec["dependencies"].(map[string]any); ok {
		if services, ok := deps["services"].([]any); ok {
			names := make([]string, 0, len(services))
			for _, s := range services {
				if name, ok := s.(string); ok {
					names = append(names, name)
				}
			}
			if len(names) > 0 {
				sort.Strings(names)
				parts = append(parts, "depends on: "+strings.Join(names, ", "))
			}
		}
	}

	if criteria, ok := spec["acceptance_criteria"].([]any); ok {
		parts = append(parts, fmt.Sprintf("%d acceptance criteria", len(criteria)))
	}

	if len(parts) == 0 {
		return "no codebase context available"
	}
	return strings.Join(parts, "; ")
}
