// Package anthropic provides an llm.Generator backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Options configure the Anthropic generator.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Generator wraps the Anthropic Messages API behind llm.Generator.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// NewGenerator creates a new Anthropic generator using the official client.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// NewGeneratorFromClient creates a new Anthropic generator from an existing client.
func NewGeneratorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
	}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.opts.Model,
		MaxTokens: g.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(g.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
