// Package llm defines the text-generation capability consumed by the
// extraction pipeline.
//
// A Generator turns a prompt into text. It is an external capability with
// bounded latency: callers pass a deadline-carrying context, and the cube
// layer reports failures and timeouts as pipeline faults.
package llm

import (
	"context"
	"strings"
	"sync"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Mock is a lightweight in-memory Generator useful for tests and examples.
//
// Responses are matched by substring against the prompt, so extraction
// prompts that wrap the input text still hit their canned response.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	failWith  error
}

// NewMock constructs a Mock that echoes the prompt by default.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for prompts containing match.
func (m *Mock) AddResponse(match, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[match] = response
}

// SetFallback sets the completion returned when no canned response matches.
// Without a fallback the prompt itself is echoed.
func (m *Mock) SetFallback(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
}

// FailWith makes every subsequent Generate call return err. Pass nil to heal.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Generate implements Generator.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return "", m.failWith
	}
	for match, response := range m.responses {
		if strings.Contains(prompt, match) {
			return response, nil
		}
	}
	if m.fallback != "" {
		return m.fallback, nil
	}
	return prompt, nil
}
