package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/piki9312/evalgate/internal/domain"
)

// DefaultAnthropicModel is used when no --model flag is given.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// anthropicMaxTokens bounds a single case response.
const anthropicMaxTokens = 4096

// modelPrices maps model name prefixes to USD per million input/output
// tokens, used to attribute a cost to each record.
var modelPrices = map[string]struct{ in, out float64 }{
	"claude-opus":   {15.0, 75.0},
	"claude-sonnet": {3.0, 15.0},
	"claude-haiku":  {1.0, 5.0},
}

// AnthropicInvoker invokes cases against the Anthropic Messages API.
type AnthropicInvoker struct {
	client anthropic.Client
	model  anthropic.Model
}

// Compile-time interface check.
var _ Invoker = (*AnthropicInvoker)(nil)

// NewAnthropicInvoker creates an invoker using ANTHROPIC_API_KEY from the
// environment. Returns an error if the API key is not set.
func NewAnthropicInvoker(model string) (*AnthropicInvoker, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicInvoker{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

// Invoke sends the case prompt as a single user message and flattens the
// text blocks of the response.
func (a *AnthropicInvoker) Invoke(ctx context.Context, c domain.Case) Outcome {
	start := time.Now()

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(c.InputPrompt)),
		},
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return Outcome{Err: err, LatencyMs: latency}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(variant.Text)
		}
	}
	text := sb.String()

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	cost := priceFor(string(a.model), resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return Outcome{
		Text:        text,
		JSON:        tryParseObject(text),
		TokensTotal: tokens,
		Cost:        cost,
		LatencyMs:   latency,
	}
}

// priceFor computes USD cost from the price table; unknown models cost 0.
func priceFor(model string, inTokens, outTokens int64) float64 {
	for prefix, p := range modelPrices {
		if strings.HasPrefix(model, prefix) {
			return float64(inTokens)/1e6*p.in + float64(outTokens)/1e6*p.out
		}
	}
	return 0
}

// tryParseObject parses text as a JSON object, returning nil when it is
// not one. Classification of required-but-missing JSON happens in the
// runner, not here.
func tryParseObject(text string) map[string]any {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil
	}
	return obj
}
