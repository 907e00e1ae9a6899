package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
)

// GatewayInvoker invokes cases against the external LLM gateway over HTTP.
// The gateway is an independent collaborator; the core only sees the
// request/response contract below.
type GatewayInvoker struct {
	url    string
	client *http.Client
}

// Compile-time interface check.
var _ Invoker = (*GatewayInvoker)(nil)

// gatewayRequest is the POST body sent per case.
type gatewayRequest struct {
	CaseID string `json:"case_id"`
	Prompt string `json:"prompt"`
}

// gatewayResponse is the expected gateway reply.
type gatewayResponse struct {
	Text        string         `json:"text"`
	JSON        map[string]any `json:"json"`
	TokensTotal int            `json:"tokens_total"`
	Cost        float64        `json:"cost"`
	LatencyMs   float64        `json:"latency_ms"`
}

// NewGatewayInvoker creates an invoker POSTing to url. The client carries
// no timeout of its own; the runner's per-item deadline governs.
func NewGatewayInvoker(url string) *GatewayInvoker {
	return &GatewayInvoker{
		url:    url,
		client: &http.Client{},
	}
}

// Invoke POSTs the case and decodes the outcome.
func (g *GatewayInvoker) Invoke(ctx context.Context, c domain.Case) Outcome {
	start := time.Now()

	body, err := json.Marshal(gatewayRequest{CaseID: c.CaseID, Prompt: c.InputPrompt})
	if err != nil {
		return Outcome{Err: fmt.Errorf("marshal gateway request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: fmt.Errorf("build gateway request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return Outcome{Err: err, LatencyMs: latency}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Outcome{
			Err:       fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
			LatencyMs: latency,
		}
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Outcome{Err: fmt.Errorf("decode gateway response: %w", err), LatencyMs: latency}
	}

	if gr.LatencyMs == 0 {
		gr.LatencyMs = latency
	}
	return Outcome{
		Text:        gr.Text,
		JSON:        gr.JSON,
		TokensTotal: gr.TokensTotal,
		Cost:        gr.Cost,
		LatencyMs:   gr.LatencyMs,
	}
}
