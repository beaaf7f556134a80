package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/memcube/llm"
	"github.com/hupe1980/memcube/model"
)

// Reader turns conversation turns into candidate memory texts.
//
// A nil error with an empty slice means the turns contained nothing worth
// remembering. A non-nil error means the pipeline itself failed and no
// partial result should be used.
type Reader interface {
	Extract(ctx context.Context, turns []model.Message) ([]string, error)
}

// extractionPrompt asks the model for one factual statement per line.
const extractionPrompt = `Extract the factual statements worth remembering from the conversation below.
Write one standalone statement per line. Write nothing else.
If there is nothing worth remembering, write nothing.

Conversation:
%s`

// StructReaderOptions configure a StructReader.
type StructReaderOptions struct {
	// Chunker segments the rendered conversation before extraction.
	Chunker *Chunker

	// Generator, when set, performs LLM fact extraction per segment. When
	// nil the segments themselves become the candidates.
	Generator llm.Generator

	// MinLength drops extracted statements shorter than this many runes.
	MinLength int
}

// StructReader renders turns to text, chunks them, and optionally asks a
// Generator to distill each segment into factual statements.
type StructReader struct {
	opts StructReaderOptions
}

// NewStructReader creates a StructReader.
func NewStructReader(optFns ...func(o *StructReaderOptions)) *StructReader {
	opts := StructReaderOptions{
		MinLength: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Chunker == nil {
		opts.Chunker = NewChunker()
	}
	return &StructReader{opts: opts}
}

// Extract implements Reader.
func (r *StructReader) Extract(ctx context.Context, turns []model.Message) ([]string, error) {
	rendered := renderTurns(turns)
	segments := r.opts.Chunker.Chunk(rendered)
	if len(segments) == 0 {
		return nil, nil
	}

	if r.opts.Generator == nil {
		return r.filter(segments), nil
	}

	var candidates []string
	for _, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := r.opts.Generator.Generate(ctx, fmt.Sprintf(extractionPrompt, segment))
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}

		candidates = append(candidates, splitStatements(output)...)
	}

	return r.filter(candidates), nil
}

func (r *StructReader) filter(candidates []string) []string {
	var kept []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len([]rune(c)) < r.opts.MinLength {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// NaiveReader keeps each non-empty turn's content as a candidate without any
// model in the loop. Useful when the memory should mirror the conversation
// verbatim or no chat model is configured.
type NaiveReader struct{}

// NewNaiveReader creates a NaiveReader.
func NewNaiveReader() *NaiveReader {
	return &NaiveReader{}
}

// Extract implements Reader.
func (r *NaiveReader) Extract(_ context.Context, turns []model.Message) ([]string, error) {
	var candidates []string
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		candidates = append(candidates, content)
	}
	return candidates, nil
}

// renderTurns flattens turns into "role: content" lines. Roles are carried
// verbatim, including ones this package does not know about.
func renderTurns(turns []model.Message) string {
	var sb strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if t.Role != "" {
			sb.WriteString(t.Role)
			sb.WriteString(": ")
		}
		sb.WriteString(content)
	}
	return sb.String()
}

// splitStatements parses model output into individual statements, stripping
// common list markers.
func splitStatements(output string) []string {
	var statements []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		statements = append(statements, line)
	}
	return statements
}
