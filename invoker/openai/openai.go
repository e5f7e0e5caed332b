// Package openai provides an invoker backed by the OpenAI Chat Completions
// API. OpenAI exposes no thought-signature primitive, so the completion id is
// carried forward as the node's opaque signature.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/invoker"
)

// Options configure the OpenAI invoker. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	// Models maps each workflow model variant onto a concrete chat model.
	Models map[core.ModelVariant]string

	Temperature         float64
	MaxCompletionTokens int64
}

// Invoker executes agent nodes through the OpenAI Chat Completions API.
type Invoker struct {
	client *openai.Client
	opts   Options
}

var _ invoker.Invoker = (*Invoker)(nil)

// New creates an OpenAI invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI invoker from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Models: map[core.ModelVariant]string{
			core.VariantFlash:     openai.ChatModelGPT4oMini,
			core.VariantPro:       openai.ChatModelGPT4o,
			core.VariantDeepThink: openai.ChatModelO1,
		},
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

// Invoke implements invoker.Invoker.
func (i *Invoker) Invoke(ctx context.Context, req invoker.Request) (*invoker.Result, error) {
	mdl, ok := i.opts.Models[req.Node.Model]
	if !ok {
		return nil, &core.InvocationError{
			NodeID: req.Node.ID,
			Err:    fmt.Errorf("no openai model mapped for variant %q", req.Node.Model),
		}
	}

	prompt, err := invoker.UserPrompt(req)
	if err != nil {
		return nil, &core.InvocationError{NodeID: req.Node.ID, Err: err}
	}

	params := openai.ChatCompletionNewParams{
		Model:               mdl,
		Temperature:         openai.Float(i.opts.Temperature),
		MaxCompletionTokens: openai.Int(i.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(invoker.SystemPrompt(req.Node)),
			openai.UserMessage(prompt),
		},
	}

	resp, err := i.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &core.InvocationError{NodeID: req.Node.ID, Err: fmt.Errorf("openai api error: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &core.InvocationError{NodeID: req.Node.ID, Err: fmt.Errorf("no choices returned")}
	}

	return &invoker.Result{
		Output:     []byte(resp.Choices[0].Message.Content),
		Signature:  resp.ID,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// Info implements invoker.Invoker.
func (i *Invoker) Info() invoker.Info { return invoker.Info{Provider: "openai"} }
