package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var requestValidator = validator.New()

// Validate checks the request for values that must be rejected before the
// loop starts. Collaborator failures degrade inside the loop; a malformed
// request is the one class of error surfaced to the caller.
func (r *ConvergeRequest) Validate() error {
	if r.SpecID == "" {
		return fmt.Errorf("spec_id is required")
	}
	if r.SpecVersion == "" {
		return fmt.Errorf("spec_version is required")
	}
	if r.SatisfactionThreshold < 0 || r.SatisfactionThreshold > 1 {
		return fmt.Errorf("satisfaction_threshold must be in [0,1] (got %g)", r.SatisfactionThreshold)
	}
	if r.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1 (got %d)", r.MaxIterations)
	}
	if r.StallLimit < 1 {
		return fmt.Errorf("stall_limit must be at least 1 (got %d)", r.StallLimit)
	}
	if r.Budget.TotalBudgetUSD < 0 {
		return fmt.Errorf("total_budget_usd cannot be negative (got %g)", r.Budget.TotalBudgetUSD)
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("invalid execution mode: %q", r.Mode)
	}
	if err := requestValidator.Struct(r); err != nil {
		return fmt.Errorf("invalid converge request: %w", err)
	}
	return nil
}
