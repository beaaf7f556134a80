package memcube

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/hupe1980/memcube/config"
	"github.com/hupe1980/memcube/embedding"
	embeddingopenai "github.com/hupe1980/memcube/embedding/openai"
	"github.com/hupe1980/memcube/llm"
	llmanthropic "github.com/hupe1980/memcube/llm/anthropic"
	llmopenai "github.com/hupe1980/memcube/llm/openai"
	"github.com/hupe1980/memcube/reader"
)

// FromConfig builds a Store from a parsed configuration document,
// constructing the embedder, chat model, and extraction pipeline the
// document selects. Options passed here are applied after the config and
// win on conflict.
func FromConfig(cfg *config.Config, optFns ...Option) (*Store, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	embedder, err := embedderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	generator, err := generatorFromConfig(cfg.ChatModel)
	if err != nil {
		return nil, err
	}

	rd, err := readerFromConfig(cfg.MemReader, generator)
	if err != nil {
		return nil, err
	}

	combined := make([]Option, 0, len(optFns)+2)
	if generator != nil {
		combined = append(combined, WithGenerator(generator))
	}
	if rd != nil {
		combined = append(combined, WithReader(rd))
	}
	combined = append(combined, optFns...)

	return New(embedder, combined...)
}

func embedderFromConfig(cfg *config.Config) (embedding.Embedder, error) {
	if cfg.TextMem == nil || cfg.TextMem.GeneralText == nil || cfg.TextMem.GeneralText.Embedder == nil {
		return nil, fmt.Errorf("memcube: config selects no embedder")
	}

	ec := cfg.TextMem.GeneralText.Embedder

	var embedder embedding.Embedder
	switch ec.Backend {
	case config.BackendOpenAI:
		var clientOpts []openaiopt.RequestOption
		if ec.OpenAI.APIKey != "" {
			clientOpts = append(clientOpts, openaiopt.WithAPIKey(ec.OpenAI.APIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		embedder = embeddingopenai.NewEmbedderFromClient(&client, func(o *embeddingopenai.Options) {
			if ec.OpenAI.Model != "" {
				o.Model = ec.OpenAI.Model
			}
			if ec.OpenAI.Dimensions > 0 {
				o.Dimensions = ec.OpenAI.Dimensions
			}
		})
	case config.BackendMock:
		dims := ec.Mock.Dimensions
		if dims <= 0 {
			dims = 64
		}
		embedder = embedding.NewMock(dims)
	default:
		return nil, fmt.Errorf("memcube: unsupported embedder backend %q", ec.Backend)
	}

	// The flat index has no parameters beyond the dimension, but a config
	// that pins one must agree with the embedder.
	if vdb := cfg.TextMem.GeneralText.VectorDB; vdb != nil && vdb.Flat != nil && vdb.Flat.Dimension > 0 {
		if vdb.Flat.Dimension != embedder.Dimensions() {
			return nil, fmt.Errorf("memcube: vector_db dimension %d disagrees with embedder dimension %d",
				vdb.Flat.Dimension, embedder.Dimensions())
		}
	}

	return embedder, nil
}

func generatorFromConfig(cm *config.ChatModel) (llm.Generator, error) {
	if cm == nil {
		return nil, nil
	}

	switch cm.Backend {
	case config.BackendOpenAI:
		var clientOpts []openaiopt.RequestOption
		if cm.OpenAI.APIKey != "" {
			clientOpts = append(clientOpts, openaiopt.WithAPIKey(cm.OpenAI.APIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return llmopenai.NewGeneratorFromClient(&client, func(o *llmopenai.Options) {
			if cm.OpenAI.Model != "" {
				o.Model = cm.OpenAI.Model
			}
			if cm.OpenAI.Temperature > 0 {
				o.Temperature = cm.OpenAI.Temperature
			}
			if cm.OpenAI.MaxTokens > 0 {
				o.MaxCompletionTokens = cm.OpenAI.MaxTokens
			}
		}), nil
	case config.BackendAnthropic:
		return llmanthropic.NewGenerator(func(o *llmanthropic.Options) {
			o.APIKey = cm.Anthropic.APIKey
			if cm.Anthropic.Model != "" {
				o.Model = anthropicsdk.Model(cm.Anthropic.Model)
			}
			if cm.Anthropic.MaxTokens > 0 {
				o.MaxTokens = cm.Anthropic.MaxTokens
			}
		}), nil
	case config.BackendMock:
		mock := llm.NewMock()
		if cm.Mock.Fallback != "" {
			mock.SetFallback(cm.Mock.Fallback)
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("memcube: unsupported chat_model backend %q", cm.Backend)
	}
}

func readerFromConfig(mr *config.MemReader, generator llm.Generator) (reader.Reader, error) {
	if mr == nil {
		return nil, nil
	}

	switch mr.Backend {
	case config.BackendStruct:
		return reader.NewStructReader(func(o *reader.StructReaderOptions) {
			o.Generator = generator
			if mr.Struct.MinLength > 0 {
				o.MinLength = mr.Struct.MinLength
			}
			if mr.Struct.MaxTokens > 0 || mr.Struct.Overlap > 0 {
				o.Chunker = reader.NewChunker(func(co *reader.ChunkerOptions) {
					if mr.Struct.MaxTokens > 0 {
						co.MaxTokens = mr.Struct.MaxTokens
					}
					if mr.Struct.Overlap >= 0 {
						co.Overlap = mr.Struct.Overlap
					}
				})
			}
		}), nil
	case config.BackendNaive:
		return reader.NewNaiveReader(), nil
	default:
		return nil, fmt.Errorf("memcube: unsupported mem_reader backend %q", mr.Backend)
	}
}
