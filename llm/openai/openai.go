// Package openai provides an llm.Generator backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Options configure the OpenAI generator.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Generator wraps the OpenAI Chat Completions API behind llm.Generator.
type Generator struct {
	client *openai.Client
	opts   Options
}

// NewGenerator creates a new OpenAI generator using the default client
// (API key from the environment).
func NewGenerator(optFns ...func(o *Options)) *Generator {
	client := openai.NewClient()
	return NewGeneratorFromClient(&client, optFns...)
}

// NewGeneratorFromClient creates a new OpenAI generator from an existing client.
func NewGeneratorFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.0,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion response")
	}
	return res.Choices[0].Message.Content, nil
}
