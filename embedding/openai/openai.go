// Package openai provides an embedding.Embedder backed by the OpenAI
// Embeddings API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Options configure the OpenAI embedder.
type Options struct {
	// Model is the embedding model name.
	Model string

	// Dimensions is the vector size the model is asked to emit.
	Dimensions int
}

// Embedder wraps the OpenAI Embeddings API behind embedding.Embedder.
type Embedder struct {
	client *openai.Client
	opts   Options
}

// NewEmbedder creates a new OpenAI embedder using the default client
// (API key from the environment).
func NewEmbedder(optFns ...func(o *Options)) *Embedder {
	client := openai.NewClient()
	return NewEmbedderFromClient(&client, optFns...)
}

// NewEmbedderFromClient creates a new OpenAI embedder from an existing client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 1536,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Dimensions: openai.Int(int64(e.opts.Dimensions)),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("openai: empty embedding response")
	}

	raw := res.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	if len(vec) != e.opts.Dimensions {
		return nil, fmt.Errorf("openai: model returned %d dimensions, expected %d", len(vec), e.opts.Dimensions)
	}
	return vec, nil
}

// Dimensions implements embedding.Embedder.
func (e *Embedder) Dimensions() int { return e.opts.Dimensions }
