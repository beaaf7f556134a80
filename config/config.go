// Package config parses the store's JSON configuration document.
//
// The document is a tree of tagged unions: every component is an envelope
// `{"backend": "<name>", "config": {...}}` whose config shape depends on the
// backend name. Unknown backend names are rejected at parse time so a typo
// never silently selects a default.
//
//	{
//	  "chat_model": {"backend": "openai", "config": {"model": "gpt-4o-mini"}},
//	  "mem_reader": {"backend": "struct", "config": {}},
//	  "text_mem": {
//	    "backend": "general_text",
//	    "config": {
//	      "embedder":  {"backend": "openai", "config": {"dimensions": 1536}},
//	      "vector_db": {"backend": "flat", "config": {"dimension": 1536}}
//	    }
//	  }
//	}
package config

import (
	"fmt"
	"os"

	gojson "github.com/goccy/go-json"
)

// Backend names accepted by the tagged unions.
const (
	BackendOpenAI      = "openai"
	BackendAnthropic   = "anthropic"
	BackendMock        = "mock"
	BackendStruct      = "struct"
	BackendNaive       = "naive"
	BackendFlat        = "flat"
	BackendGeneralText = "general_text"
)

// Config is the root configuration document. Absent components fall back to
// the store's defaults.
type Config struct {
	ChatModel *ChatModel `json:"chat_model,omitempty"`
	MemReader *MemReader `json:"mem_reader,omitempty"`
	TextMem   *TextMem   `json:"text_mem,omitempty"`
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := gojson.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// envelope is the wire shape of every tagged union.
type envelope struct {
	Backend string            `json:"backend"`
	Config  gojson.RawMessage `json:"config,omitempty"`
}

func decodeEnvelope(data []byte, component string) (envelope, error) {
	var env envelope
	if err := gojson.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("config: %s: %w", component, err)
	}
	if env.Backend == "" {
		return env, fmt.Errorf("config: %s: missing backend", component)
	}
	return env, nil
}

func decodeBody(env envelope, component string, v any) error {
	if len(env.Config) == 0 {
		return nil
	}
	if err := gojson.Unmarshal(env.Config, v); err != nil {
		return fmt.Errorf("config: %s %q: %w", component, env.Backend, err)
	}
	return nil
}

// ChatModel selects the text-generation backend.
type ChatModel struct {
	Backend   string
	OpenAI    *OpenAIChatModel
	Anthropic *AnthropicChatModel
	Mock      *MockChatModel
}

// OpenAIChatModel configures an OpenAI chat backend.
type OpenAIChatModel struct {
	APIKey      string  `json:"api_key,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// AnthropicChatModel configures an Anthropic chat backend.
type AnthropicChatModel struct {
	APIKey    string `json:"api_key,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int64  `json:"max_tokens,omitempty"`
}

// MockChatModel configures the in-memory test backend.
type MockChatModel struct {
	Fallback string `json:"fallback,omitempty"`
}

// UnmarshalJSON implements the tagged union.
func (c *ChatModel) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data, "chat_model")
	if err != nil {
		return err
	}

	c.Backend = env.Backend

	switch env.Backend {
	case BackendOpenAI:
		c.OpenAI = &OpenAIChatModel{}
		return decodeBody(env, "chat_model", c.OpenAI)
	case BackendAnthropic:
		c.Anthropic = &AnthropicChatModel{}
		return decodeBody(env, "chat_model", c.Anthropic)
	case BackendMock:
		c.Mock = &MockChatModel{}
		return decodeBody(env, "chat_model", c.Mock)
	default:
		return fmt.Errorf("config: unknown chat_model backend %q", env.Backend)
	}
}

// MarshalJSON emits the envelope form.
func (c ChatModel) MarshalJSON() ([]byte, error) {
	var body any
	switch c.Backend {
	case BackendOpenAI:
		body = c.OpenAI
	case BackendAnthropic:
		body = c.Anthropic
	case BackendMock:
		body = c.Mock
	default:
		return nil, fmt.Errorf("config: unknown chat_model backend %q", c.Backend)
	}
	return marshalEnvelope(c.Backend, body)
}

// MemReader selects the extraction pipeline backend.
type MemReader struct {
	Backend string
	Struct  *StructMemReader
	Naive   *NaiveMemReader
}

// StructMemReader configures chunked, model-assisted extraction.
type StructMemReader struct {
	MaxTokens int `json:"max_tokens,omitempty"`
	Overlap   int `json:"overlap,omitempty"`
	MinLength int `json:"min_length,omitempty"`
}

// NaiveMemReader keeps turns verbatim without a model in the loop.
type NaiveMemReader struct{}

// UnmarshalJSON implements the tagged union.
func (r *MemReader) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data, "mem_reader")
	if err != nil {
		return err
	}

	r.Backend = env.Backend

	switch env.Backend {
	case BackendStruct:
		r.Struct = &StructMemReader{}
		return decodeBody(env, "mem_reader", r.Struct)
	case BackendNaive:
		r.Naive = &NaiveMemReader{}
		return decodeBody(env, "mem_reader", r.Naive)
	default:
		return fmt.Errorf("config: unknown mem_reader backend %q", env.Backend)
	}
}

// MarshalJSON emits the envelope form.
func (r MemReader) MarshalJSON() ([]byte, error) {
	var body any
	switch r.Backend {
	case BackendStruct:
		body = r.Struct
	case BackendNaive:
		body = r.Naive
	default:
		return nil, fmt.Errorf("config: unknown mem_reader backend %q", r.Backend)
	}
	return marshalEnvelope(r.Backend, body)
}

// Embedder selects the embedding backend.
type Embedder struct {
	Backend string
	OpenAI  *OpenAIEmbedder
	Mock    *MockEmbedder
}

// OpenAIEmbedder configures an OpenAI embeddings backend.
type OpenAIEmbedder struct {
	APIKey     string `json:"api_key,omitempty"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// MockEmbedder configures the deterministic test backend.
type MockEmbedder struct {
	Dimensions int `json:"dimensions,omitempty"`
}

// UnmarshalJSON implements the tagged union.
func (e *Embedder) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data, "embedder")
	if err != nil {
		return err
	}

	e.Backend = env.Backend

	switch env.Backend {
	case BackendOpenAI:
		e.OpenAI = &OpenAIEmbedder{}
		return decodeBody(env, "embedder", e.OpenAI)
	case BackendMock:
		e.Mock = &MockEmbedder{}
		return decodeBody(env, "embedder", e.Mock)
	default:
		return fmt.Errorf("config: unknown embedder backend %q", env.Backend)
	}
}

// MarshalJSON emits the envelope form.
func (e Embedder) MarshalJSON() ([]byte, error) {
	var body any
	switch e.Backend {
	case BackendOpenAI:
		body = e.OpenAI
	case BackendMock:
		body = e.Mock
	default:
		return nil, fmt.Errorf("config: unknown embedder backend %q", e.Backend)
	}
	return marshalEnvelope(e.Backend, body)
}

// VectorDB selects the similarity index backend.
type VectorDB struct {
	Backend string
	Flat    *FlatVectorDB
}

// FlatVectorDB configures the exact in-process index.
type FlatVectorDB struct {
	Dimension int `json:"dimension,omitempty"`
}

// UnmarshalJSON implements the tagged union.
func (v *VectorDB) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data, "vector_db")
	if err != nil {
		return err
	}

	v.Backend = env.Backend

	switch env.Backend {
	case BackendFlat:
		v.Flat = &FlatVectorDB{}
		return decodeBody(env, "vector_db", v.Flat)
	default:
		return fmt.Errorf("config: unknown vector_db backend %q", env.Backend)
	}
}

// MarshalJSON emits the envelope form.
func (v VectorDB) MarshalJSON() ([]byte, error) {
	if v.Backend != BackendFlat {
		return nil, fmt.Errorf("config: unknown vector_db backend %q", v.Backend)
	}
	return marshalEnvelope(v.Backend, v.Flat)
}

// TextMem selects the textual memory backend.
type TextMem struct {
	Backend     string
	GeneralText *GeneralTextMem
}

// GeneralTextMem couples an embedder with a vector index.
type GeneralTextMem struct {
	Embedder *Embedder `json:"embedder,omitempty"`
	VectorDB *VectorDB `json:"vector_db,omitempty"`
}

// UnmarshalJSON implements the tagged union.
func (m *TextMem) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data, "text_mem")
	if err != nil {
		return err
	}

	m.Backend = env.Backend

	switch env.Backend {
	case BackendGeneralText:
		m.GeneralText = &GeneralTextMem{}
		return decodeBody(env, "text_mem", m.GeneralText)
	default:
		return fmt.Errorf("config: unknown text_mem backend %q", env.Backend)
	}
}

// MarshalJSON emits the envelope form.
func (m TextMem) MarshalJSON() ([]byte, error) {
	if m.Backend != BackendGeneralText {
		return nil, fmt.Errorf("config: unknown text_mem backend %q", m.Backend)
	}
	return marshalEnvelope(m.Backend, m.GeneralText)
}

func marshalEnvelope(backend string, body any) ([]byte, error) {
	raw, err := gojson.Marshal(body)
	if err != nil {
		return nil, err
	}
	return gojson.Marshal(envelope{Backend: backend, Config: raw})
}
