package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// GenerateRequest describes one generation pass over a spec.
type GenerateRequest struct {
	SpecID    string
	Spec      map[string]any
	Iteration int
	// Feedback carries the judge's reasoning from the prior iteration
	Feedback string
	// Context carries discovered codebase context between iterations
	Context string
	// Strategic requests a wholesale rework rather than an incremental patch
	Strategic bool
}

// GenerateResult is a produced artifact with its cost. Degraded marks results
// synthesized after a collaborator failure.
type GenerateResult struct {
	ArtifactRef string
	Summary     string
	CostUSD     float64
	Degraded    bool
}

// VerifyResult is the outcome of structural verification of an artifact.
type VerifyResult struct {
	Passed   bool
	Findings []string
	CostUSD  float64
	Degraded bool
}

// Generate asks the fleet to produce an artifact for the spec. Collaborator
// failures degrade to a stub result with the flat generation cost; Generate
// never returns an error.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) GenerateResult {
	ref := artifactRef(req.SpecID, req.Iteration)
	cost := GenerateCost
	if req.Strategic {
		cost = RegenerateCost
	}

	if c.client == nil {
		return GenerateResult{
			ArtifactRef: ref,
			Summary:     fmt.Sprintf("stub generation for %s", req.SpecID),
			CostUSD:     cost,
		}
	}

	text, err := c.complete(ctx, c.buildGeneratePrompt(req))
	if err != nil {
		c.log.Warn().Str("spec_id", req.SpecID).Err(err).Msg("fleet.generate.degraded")
		return GenerateResult{
			ArtifactRef: ref,
			Summary:     "degraded generation after collaborator failure",
			CostUSD:     cost,
			Degraded:    true,
		}
	}

	return GenerateResult{ArtifactRef: ref, Summary: summarize(text), CostUSD: cost}
}

// Verify runs structural verification against an artifact. Stub mode and
// collaborator failures both report passing verification at the flat cost,
// leaving judgment to the evaluation step.
func (c *Client) Verify(ctx context.Context, specID, artifactRef string) VerifyResult {
	if c.client == nil {
		return VerifyResult{Passed: true, CostUSD: VerifyCost}
	}

	prompt := fmt.Sprintf(
		"Verify artifact %s for spec %s. List structural findings as a JSON array of strings; an empty array means verification passes.",
		artifactRef, specID)
	text, err := c.complete(ctx, prompt)
	if err != nil {
		c.log.Warn().Str("spec_id", specID).Err(err).Msg("fleet.verify.degraded")
		return VerifyResult{Passed: true, CostUSD: VerifyCost, Degraded: true}
	}

	findings := parseFindings(text)
	return VerifyResult{Passed: len(findings) == 0, Findings: findings, CostUSD: VerifyCost}
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer c.sem.Release(1)
	}

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (c *Client) buildGeneratePrompt(req GenerateRequest) string {
	var b strings.Builder
	if req.Strategic {
		b.WriteString("Rework the implementation from scratch with a different approach.\n\n")
	} else {
		b.WriteString("Produce an implementation satisfying the spec below.\n\n")
	}

	specJSON, _ := json.MarshalIndent(req.Spec, "", "  ")
	fmt.Fprintf(&b, "Spec %s (iteration %d):\n%s\n", req.SpecID, req.Iteration, specJSON)

	if req.Feedback != "" {
		fmt.Fprintf(&b, "\nJudge feedback from the prior iteration:\n%s\n", req.Feedback)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "\nDiscovered codebase context:\n%s\n", req.Context)
	}
	return b.String()
}

func artifactRef(specID string, iteration int) string {
	return fmt.Sprintf("artifact://%s/iter-%d", specID, iteration)
}

// parseFindings extracts a JSON string array from a collaborator response,
// tolerating markdown code fences around it.
func parseFindings(text string) []string {
	cleaned := strings.TrimSpace(text)
	if start := strings.Index(cleaned, "["); start >= 0 {
		if end := strings.LastIndex(cleaned, "]"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var findings []string
	if err := json.Unmarshal([]byte(cleaned), &findings); err != nil {
		return nil
	}
	return findings
}

func summarize(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
