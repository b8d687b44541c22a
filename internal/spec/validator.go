package spec

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var specIDPattern = regexp.MustCompile(`^spec-\d{8}-[a-z0-9-]+$`)

// weightTolerance allows for float accumulation error when checking that
// criterion weights sum to 1.0.
const weightTolerance = 0.01

// Validate checks a spec for completeness and correctness before it can be
// compiled or converged against. Errors block compilation; warnings do not.
func Validate(s *Spec) ValidateResult {
	var errs, warnings []string

	if !specIDPattern.MatchString(s.ID) {
		errs = append(errs, fmt.Sprintf("spec ID must match 'spec-{date}-{slug}' format, got: %s", s.ID))
	}

	// semver.IsValid expects a leading "v"; spec versions are stored bare.
	if !semver.IsValid("v" + s.Version) || semver.Canonical("v"+s.Version) != "v"+s.Version {
		errs = append(errs, fmt.Sprintf("version must be semver (x.y.z), got: %s", s.Version))
	}

	if strings.TrimSpace(s.Description) == "" {
		errs = append(errs, "description is required")
	}

	if len(s.AcceptanceCriteria) == 0 {
		errs = append(errs, "at least one acceptance criterion is required")
	} else if math.Abs(s.WeightSum()-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("acceptance criteria weights must sum to 1.0, got %.2f", s.WeightSum()))
	}

	if len(s.Invariants) == 0 {
		warnings = append(warnings, "no invariants defined - consider adding safety properties")
	}
	if len(s.Inputs) == 0 {
		warnings = append(warnings, "no inputs defined")
	}
	if len(s.Outputs) == 0 {
		warnings = append(warnings, "no outputs defined")
	}

	for _, capRef := range s.Dependencies.Capabilities {
		if !strings.Contains(capRef, ":") {
			errs = append(errs, fmt.Sprintf("capability must be 'model:capability' format, got: %s", capRef))
		}
	}

	if s.Domain.Service == "" {
		errs = append(errs, "domain service is required")
	}
	if s.Domain.Language == "" {
		errs = append(errs, "domain language is required")
	}

	return ValidateResult{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}
