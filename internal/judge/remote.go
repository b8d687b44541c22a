package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RemoteBackend invokes a trained scoring model via HTTP real-time inference.
// Calls are rate limited client-side so a tight evaluation batch cannot
// overwhelm the model endpoint.
type RemoteBackend struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewRemoteBackend creates a backend for the given inference endpoint.
func NewRemoteBackend(cfg Config) (*RemoteBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("judge endpoint is required for remote mode")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}

	return &RemoteBackend{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: time.Duration(timeout) * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Evaluate implements Backend.
func (b *RemoteBackend) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return EvaluateResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to marshal evaluate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to build evaluate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("judge endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EvaluateResponse{}, fmt.Errorf("judge endpoint returned status %d", resp.StatusCode)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to decode judge response: %w", err)
	}

	if result.Score < 0 || result.Score > 1 {
		return EvaluateResponse{}, fmt.Errorf("judge returned score %g outside [0,1]", result.Score)
	}
	if result.ModelVersion == "" {
		result.ModelVersion = fmt.Sprintf("remote:%s", b.endpoint)
	}

	return result, nil
}
