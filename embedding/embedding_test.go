package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memcube/distance"
)

func TestMockEmbed(t *testing.T) {
	ctx := context.Background()
	e := NewMock(64)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := e.Embed(ctx, "I love football")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "I love football")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("DeclaredDimensions", func(t *testing.T) {
		vec, err := e.Embed(ctx, "hello world")
		require.NoError(t, err)
		assert.Len(t, vec, e.Dimensions())
		require.NoError(t, Validate(ctx, e))
	})

	t.Run("SharedTermsScoreHigher", func(t *testing.T) {
		memory, err := e.Embed(ctx, "the user loves playing football")
		require.NoError(t, err)
		related, err := e.Embed(ctx, "what does the user love playing")
		require.NoError(t, err)
		unrelated, err := e.Embed(ctx, "quarterly revenue spreadsheet")
		require.NoError(t, err)

		assert.Greater(t, distance.Cosine(memory, related), distance.Cosine(memory, unrelated))
	})

	t.Run("EmptyTextStillEmbeds", func(t *testing.T) {
		vec, err := e.Embed(ctx, "")
		require.NoError(t, err)
		assert.Len(t, vec, e.Dimensions())
	})

	t.Run("CanceledContext", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Embed(canceled, "x")
		require.Error(t, err)
	})
}

func TestMockFailWith(t *testing.T) {
	e := NewMock(8)
	boom := errors.New("boom")
	e.FailWith(boom)

	_, err := e.Embed(context.Background(), "x")
	require.ErrorIs(t, err, boom)

	e.FailWith(nil)
	_, err = e.Embed(context.Background(), "x")
	require.NoError(t, err)
}
