package reader

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkerOptions configure text segmentation.
type ChunkerOptions struct {
	// MaxTokens bounds the size of one segment.
	MaxTokens int

	// Overlap is the number of tokens repeated between adjacent segments so
	// facts spanning a boundary are not lost.
	Overlap int

	// Encoding is the tiktoken encoding name.
	Encoding string
}

// DefaultChunkerOptions match typical extraction-model context budgets.
var DefaultChunkerOptions = ChunkerOptions{
	MaxTokens: 512,
	Overlap:   32,
	Encoding:  "cl100k_base",
}

// Chunker splits raw text into token-bounded segments.
//
// Token counting uses tiktoken. If the encoding cannot be initialized (e.g.
// no BPE data available in the environment), the chunker falls back to
// counting whitespace-separated words instead of failing ingestion.
type Chunker struct {
	opts ChunkerOptions

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewChunker creates a chunker.
func NewChunker(optFns ...func(o *ChunkerOptions)) *Chunker {
	opts := DefaultChunkerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultChunkerOptions.MaxTokens
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxTokens {
		opts.Overlap = 0
	}
	return &Chunker{opts: opts}
}

// Chunk splits text into segments of at most MaxTokens tokens.
// Empty or whitespace-only text yields no segments.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.opts.Encoding)
		if err == nil {
			c.enc = enc
		}
	})

	if c.enc != nil {
		return c.chunkTokens(text)
	}
	return c.chunkWords(text)
}

func (c *Chunker) chunkTokens(text string) []string {
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= c.opts.MaxTokens {
		return []string{text}
	}

	var segments []string
	step := c.opts.MaxTokens - c.opts.Overlap
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.opts.MaxTokens, len(tokens))
		segment := strings.TrimSpace(c.enc.Decode(tokens[start:end]))
		if segment != "" {
			segments = append(segments, segment)
		}
		if end == len(tokens) {
			break
		}
	}
	return segments
}

func (c *Chunker) chunkWords(text string) []string {
	words := strings.Fields(text)
	if len(words) <= c.opts.MaxTokens {
		return []string{text}
	}

	var segments []string
	step := c.opts.MaxTokens - c.opts.Overlap
	for start := 0; start < len(words); start += step {
		end := min(start+c.opts.MaxTokens, len(words))
		segments = append(segments, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return segments
}
