// Package anthropic provides an invoker backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/invoker"
)

// Options configures the Anthropic invoker (model mapping, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	// Models maps each workflow model variant onto a concrete Claude model.
	Models map[core.ModelVariant]anthropic.Model

	Temperature float64
	MaxTokens   int64

	// ThinkingBudget is the token budget for extended thinking; only applied
	// to nodes requesting the deep-think variant.
	ThinkingBudget int64

	APIKey string
}

// Invoker executes agent nodes through the Anthropic Messages API. Nodes on
// the deep-think variant run with extended thinking enabled; the signature of
// the thinking block is carried forward as the node's thought signature.
type Invoker struct {
	client *anthropic.Client
	opts   Options
}

var _ invoker.Invoker = (*Invoker)(nil)

// New creates an Anthropic invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Invoker{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic invoker from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Models: map[core.ModelVariant]anthropic.Model{
			core.VariantFlash:     anthropic.ModelClaude3_5Haiku20241022,
			core.VariantPro:       anthropic.ModelClaude3_5Sonnet20241022,
			core.VariantDeepThink: anthropic.ModelClaude3_7SonnetLatest,
		},
		Temperature:    0.7,
		MaxTokens:      4096,
		ThinkingBudget: 2048,
	}
}

// Invoke implements invoker.Invoker.
func (i *Invoker) Invoke(ctx context.Context, req invoker.Request) (*invoker.Result, error) {
	mdl, ok := i.opts.Models[req.Node.Model]
	if !ok {
		return nil, &core.InvocationError{
			NodeID: req.Node.ID,
			Err:    fmt.Errorf("no anthropic model mapped for variant %q", req.Node.Model),
		}
	}

	prompt, err := invoker.UserPrompt(req)
	if err != nil {
		return nil, &core.InvocationError{NodeID: req.Node.ID, Err: err}
	}

	params := anthropic.MessageNewParams{
		Model:     mdl,
		MaxTokens: i.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: invoker.SystemPrompt(req.Node)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if req.Node.Model == core.VariantDeepThink {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(i.opts.ThinkingBudget)
	} else {
		// Thinking and temperature are mutually exclusive on the API.
		params.Temperature = anthropic.Float(i.opts.Temperature)
	}

	resp, err := i.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &core.InvocationError{NodeID: req.Node.ID, Err: fmt.Errorf("anthropic api error: %w", err)}
	}

	var text strings.Builder
	signature := ""
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "thinking":
			signature = block.AsThinking().Signature
		}
	}

	return &invoker.Result{
		Output:     []byte(text.String()),
		Signature:  signature,
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

// Info implements invoker.Invoker.
func (i *Invoker) Info() invoker.Info { return invoker.Info{Provider: "anthropic"} }
